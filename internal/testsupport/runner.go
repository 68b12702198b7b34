package testsupport

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"vectra/internal/job"
	"vectra/internal/segment"
)

// StubRunner is a pipeline stand-in with scripted behavior. The zero value
// completes immediately with a single-layer model.
type StubRunner struct {
	// Layers overrides the layers of the produced model.
	Layers []segment.Layer
	// FailStage, when set, fails the run at that stage name.
	FailStage string
	// BlockOnCancel makes Run wait for context cancellation instead of
	// completing, to exercise cooperative cancel paths.
	BlockOnCancel bool
	// Delay keeps each Run in flight for the given duration so overlap
	// between workers becomes observable.
	Delay time.Duration
	// Progress steps reported before completing, in order.
	Progress []ProgressStep

	runs   atomic.Int64
	active atomic.Int64
	peak   atomic.Int64
}

// ProgressStep is one scripted report call.
type ProgressStep struct {
	Stage   string
	Percent int
}

// Runs reports how many times Run was invoked.
func (r *StubRunner) Runs() int64 { return r.runs.Load() }

// PeakInFlight reports the highest number of simultaneous Run calls observed.
func (r *StubRunner) PeakInFlight() int64 { return r.peak.Load() }

func (r *StubRunner) Run(ctx context.Context, source []byte, opts job.Options, report job.ProgressFunc) (*job.Result, error) {
	r.runs.Add(1)
	inFlight := r.active.Add(1)
	for {
		peak := r.peak.Load()
		if inFlight <= peak || r.peak.CompareAndSwap(peak, inFlight) {
			break
		}
	}
	defer r.active.Add(-1)

	if r.BlockOnCancel {
		<-ctx.Done()
		return nil, context.Canceled
	}
	if r.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, context.Canceled
		case <-time.After(r.Delay):
		}
	}
	if r.FailStage != "" {
		return nil, &job.StageError{Stage: r.FailStage, Err: errors.New(r.FailStage + " exploded")}
	}

	for _, step := range r.Progress {
		if report != nil {
			report(step.Stage, step.Percent)
		}
	}

	layers := r.Layers
	if layers == nil {
		layers = []segment.Layer{{
			Color:      "#336699",
			PathData:   "M 0 0 L 4 0 L 4 4 L 0 4 Z",
			Mask:       FilledMask(4, 4),
			PixelShare: 1,
		}}
	}
	model := segment.NewModel(4, 4, layers)
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	return &job.Result{Model: model, SVG: svg}, nil
}

// StubSplitter clones a layer into equal-share copies without touching
// pixel coverage.
type StubSplitter struct {
	// Err, when set, fails every SplitLayer call.
	Err error

	calls atomic.Int64
}

// Calls reports how many times SplitLayer was invoked.
func (s *StubSplitter) Calls() int64 { return s.calls.Load() }

func (s *StubSplitter) SplitLayer(layer segment.Layer, parts int) ([]segment.Layer, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]segment.Layer, parts)
	for i := range out {
		out[i] = layer
		out[i].PixelShare = layer.PixelShare / float64(parts)
	}
	return out, nil
}

// FilledMask returns a mask with every pixel set.
func FilledMask(w, h int) *segment.Mask {
	mask := segment.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask.Set(x, y, true)
		}
	}
	return mask
}

// NewLayer builds a simple square layer for model tests.
func NewLayer(colorHex string, w, h int) segment.Layer {
	return segment.Layer{
		Color:      colorHex,
		PathData:   "M 0 0 L 1 0 L 1 1 L 0 1 Z",
		Mask:       FilledMask(w, h),
		PixelShare: 0.1,
	}
}
