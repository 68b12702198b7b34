package job

import (
	"context"

	"vectra/internal/segment"
)

// ProgressFunc receives the completed stage name and the cumulative progress
// percentage after each pipeline stage boundary.
type ProgressFunc func(stage string, percent int)

// Result is the output of a successful pipeline run.
type Result struct {
	Model *segment.Model
	SVG   []byte
}

// Runner executes the conversion pipeline for one job. The manager treats it
// as opaque: it either returns a result, a context.Canceled error when the
// job context was cancelled, or a *StageError naming the failed stage.
type Runner interface {
	Run(ctx context.Context, source []byte, opts Options, report ProgressFunc) (*Result, error)
}

// StageError records which pipeline stage failed and why.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Stage + " failed"
	}
	return e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// LayerSplitter partitions one layer into spatially clustered parts, each
// with its own mask and freshly traced path data. Parts keep the source
// layer's color so the split is visually invisible until a part is
// recolored.
type LayerSplitter interface {
	SplitLayer(layer segment.Layer, parts int) ([]segment.Layer, error)
}

// StatusSink receives every snapshot change. The progress hub implements it;
// a nop implementation is used in tests that do not observe progress.
type StatusSink interface {
	Publish(snap Snapshot)
	Drop(jobID string)
}

// ArtifactStore is the slice of the artifact cache the manager needs: seeding
// the default SVG export after a successful run and releasing a job's cached
// artifacts at disposal.
type ArtifactStore interface {
	SeedSVG(jobID string, version uint64, payload []byte) error
	EvictJob(jobID string) error
}

// NopSink discards all updates.
type NopSink struct{}

func (NopSink) Publish(Snapshot) {}
func (NopSink) Drop(string)      {}
