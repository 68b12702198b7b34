package job

import (
	"fmt"
	"log/slog"
	"time"

	"vectra/internal/logging"
	"vectra/internal/segment"
	"vectra/internal/services"
)

// Editor applies segment edits to finished jobs. Every successful edit bumps
// the model version, which invalidates cached exports, and republishes the
// job snapshot so subscribers see the new palette.
type Editor struct {
	manager  *Manager
	splitter LayerSplitter
	logger   *slog.Logger
}

// NewEditor wraps a manager with the edit operations. The splitter backs
// Split; recolor, merge, and delete do not touch it.
func NewEditor(manager *Manager, splitter LayerSplitter, logger *slog.Logger) *Editor {
	return &Editor{
		manager:  manager,
		splitter: splitter,
		logger:   logging.NewComponentLogger(logger, "editor"),
	}
}

// Recolor changes the fill color of one layer.
func (ed *Editor) Recolor(jobID string, index int, color string) error {
	return ed.apply(jobID, "recolor", func(model *segment.Model) error {
		return model.Recolor(index, color)
	})
}

// Merge combines two layers into the lower index, which keeps its color.
func (ed *Editor) Merge(jobID string, first, second int) error {
	return ed.apply(jobID, "merge", func(model *segment.Model) error {
		return model.Merge(first, second)
	})
}

// Delete removes one layer; remaining layers reindex densely. Deleting the
// last layer leaves a valid empty model.
func (ed *Editor) Delete(jobID string, index int) error {
	return ed.apply(jobID, "delete", func(model *segment.Model) error {
		return model.Delete(index)
	})
}

// Split partitions one layer into the requested number of spatial clusters.
// Each part keeps the original color, so a user can recolor regions of a
// formerly uniform area independently.
func (ed *Editor) Split(jobID string, index, parts int) error {
	if parts < 2 {
		return services.Wrap(services.ErrValidation, "editor", "split", "a layer splits into at least 2 parts", nil)
	}
	if ed.splitter == nil {
		return services.Wrap(services.ErrValidation, "editor", "split", "no splitter configured", nil)
	}
	return ed.apply(jobID, "split", func(model *segment.Model) error {
		return model.Split(index, func(layer segment.Layer) ([]segment.Layer, error) {
			return ed.splitter.SplitLayer(layer, parts)
		})
	})
}

func (ed *Editor) apply(jobID, operation string, edit func(model *segment.Model) error) error {
	m := ed.manager
	m.mu.Lock()
	e, ok := m.jobs[jobID]
	if !ok || e.disposed {
		m.mu.Unlock()
		return services.Wrap(services.ErrNotFound, "editor", operation, jobID, nil)
	}
	if e.job.State != StateDone {
		state := e.job.State
		m.mu.Unlock()
		return services.Wrap(services.ErrInvalidState, "editor", operation,
			fmt.Sprintf("job is %s, not done", state), nil)
	}
	model := e.job.Segments
	e.refs.Add(1)
	m.mu.Unlock()
	defer e.refs.Done()

	if err := edit(model); err != nil {
		return err
	}

	m.mu.Lock()
	if e.disposed {
		m.mu.Unlock()
		return nil
	}
	e.job.UpdatedAt = time.Now()
	snap := e.job.snapshot()
	m.mu.Unlock()
	m.sink.Publish(snap)

	ed.logger.Info("segment edit applied",
		logging.String(logging.FieldEventType, "segment_edit"),
		logging.String(logging.FieldJobID, jobID),
		logging.String("operation", operation),
		logging.Uint64("version", model.Version()),
	)
	return nil
}
