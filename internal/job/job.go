package job

import (
	"strings"
	"time"

	"vectra/internal/segment"
)

// State represents the lifecycle of a job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateError     State = "error"
	StateCancelled State = "cancelled"
)

var allStates = []State{StateQueued, StateRunning, StateDone, StateError, StateCancelled}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	for _, state := range allStates {
		if state == normalized {
			return state, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition can leave the state.
func (s State) IsTerminal() bool {
	switch s {
	case StateDone, StateError, StateCancelled:
		return true
	default:
		return false
	}
}

// Job is one tracked vectorization request. Fields are mutated only by the
// worker executing its pipeline and by editor calls targeting it; everything
// the API needs is exposed through Snapshot copies.
type Job struct {
	ID        string
	Filename  string
	Options   Options
	State     State
	Stage     string
	Progress  int
	Error     string
	Segments  *segment.Model
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is an immutable view of a job at one instant. Push updates and
// pull queries both derive from snapshots so the two can never disagree.
type Snapshot struct {
	JobID     string    `json:"job_id"`
	State     State     `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Colors    []string  `json:"colors,omitempty"`
	Layers    int       `json:"layers,omitempty"`
	SVGURL    string    `json:"svg_url,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (j *Job) snapshot() Snapshot {
	snap := Snapshot{
		JobID:     j.ID,
		State:     j.State,
		Stage:     j.Stage,
		Progress:  j.Progress,
		Error:     j.Error,
		Filename:  j.Filename,
		CreatedAt: j.CreatedAt,
	}
	if j.State == StateDone && j.Segments != nil {
		snap.Colors = j.Segments.Palette()
		snap.Layers = j.Segments.LayerCount()
		snap.SVGURL = "/api/export?job_id=" + j.ID + "&format=svg"
	}
	return snap
}
