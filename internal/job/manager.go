package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	// Register decoders so submissions in every supported source format pass
	// DecodeConfig validation here and full decoding in the pipeline.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"

	"vectra/internal/config"
	"vectra/internal/logging"
	"vectra/internal/segment"
	"vectra/internal/services"
)

// Manager owns the job registry and the worker pool that drains the queue.
// It is the single writer of job state; all other components observe jobs
// through snapshots or through the guarded model accessors.
type Manager struct {
	cfg       *config.Config
	runner    Runner
	sink      StatusSink
	artifacts ArtifactStore
	logger    *slog.Logger

	mu    sync.RWMutex
	jobs  map[string]*entry
	queue chan string

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	workers     sync.WaitGroup
	started     bool
}

// entry pairs a job with the bookkeeping the manager needs around it. refs
// counts in-flight edits and renders so disposal can wait them out.
type entry struct {
	job      Job
	source   []byte
	cancel   context.CancelFunc
	refs     sync.WaitGroup
	disposed bool
}

// NewManager creates a manager. A nil sink disables status publication and a
// nil artifact store disables export seeding and eviction.
func NewManager(cfg *config.Config, runner Runner, sink StatusSink, artifacts ArtifactStore, logger *slog.Logger) *Manager {
	if sink == nil {
		sink = NopSink{}
	}
	return &Manager{
		cfg:       cfg,
		runner:    runner,
		sink:      sink,
		artifacts: artifacts,
		logger:    logging.NewComponentLogger(logger, "job-manager"),
		jobs:      make(map[string]*entry),
		queue:     make(chan string, cfg.Jobs.QueueDepth),
	}
}

// Start launches the worker pool and the TTL sweeper. It is idempotent.
func (m *Manager) Start(ctx context.Context) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.started {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.started = true

	for i := 0; i < m.cfg.Jobs.Workers; i++ {
		m.workers.Add(1)
		go m.worker(runCtx)
	}
	if m.cfg.Jobs.TTLSeconds > 0 {
		m.workers.Add(1)
		go m.sweeper(runCtx)
	}
	m.logger.Info("manager started",
		logging.String(logging.FieldEventType, "manager_started"),
		logging.Int("workers", m.cfg.Jobs.Workers),
		logging.Int("queue_depth", m.cfg.Jobs.QueueDepth),
	)
}

// Stop cancels all running jobs and waits for the workers to drain.
func (m *Manager) Stop() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if !m.started {
		return
	}
	m.cancel()
	m.workers.Wait()
	m.started = false
	m.logger.Info("manager stopped",
		logging.String(logging.FieldEventType, "manager_stopped"))
}

// Submit validates the upload, registers a queued job, and enqueues it for
// the next free worker. The returned ID is the handle for every later call.
func (m *Manager) Submit(source []byte, filename string, opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	if len(source) == 0 {
		return "", services.Wrap(services.ErrValidation, "job", "submit", "empty upload", nil)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(source))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "job", "submit", "unsupported or corrupt image", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", services.Wrap(services.ErrValidation, "job", "submit", "image has no pixels", nil)
	}

	now := time.Now()
	e := &entry{
		job: Job{
			ID:        uuid.NewString(),
			Filename:  filename,
			Options:   opts,
			State:     StateQueued,
			CreatedAt: now,
			UpdatedAt: now,
		},
		source: source,
	}

	m.mu.Lock()
	select {
	case m.queue <- e.job.ID:
	default:
		m.mu.Unlock()
		return "", fmt.Errorf("job queue is full (%d pending)", cap(m.queue))
	}
	m.jobs[e.job.ID] = e
	snap := e.job.snapshot()
	m.mu.Unlock()

	m.sink.Publish(snap)
	m.logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String(logging.FieldJobID, e.job.ID),
		logging.String("filename", filename),
		logging.Int("bytes", len(source)),
	)
	return e.job.ID, nil
}

// Get returns the current snapshot for a job.
func (m *Manager) Get(jobID string) (Snapshot, error) {
	m.mu.RLock()
	e, ok := m.jobs[jobID]
	if !ok || e.disposed {
		m.mu.RUnlock()
		return Snapshot{}, services.Wrap(services.ErrNotFound, "job", "get", jobID, nil)
	}
	snap := e.job.snapshot()
	m.mu.RUnlock()
	return snap, nil
}

// Cancel requests cancellation. Queued jobs flip to cancelled immediately;
// running jobs are cancelled cooperatively at the next stage boundary.
// Cancelling a terminal job is a no-op.
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	e, ok := m.jobs[jobID]
	if !ok || e.disposed {
		m.mu.Unlock()
		return services.Wrap(services.ErrNotFound, "job", "cancel", jobID, nil)
	}
	switch e.job.State {
	case StateQueued:
		e.job.State = StateCancelled
		e.job.UpdatedAt = time.Now()
		snap := e.job.snapshot()
		m.mu.Unlock()
		m.sink.Publish(snap)
		m.logger.Info("queued job cancelled",
			logging.String(logging.FieldEventType, "job_cancelled"),
			logging.String(logging.FieldJobID, jobID))
		return nil
	case StateRunning:
		cancel := e.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		m.logger.Info("running job cancel requested",
			logging.String(logging.FieldEventType, "job_cancel_requested"),
			logging.String(logging.FieldJobID, jobID))
		return nil
	default:
		m.mu.Unlock()
		return nil
	}
}

// Dispose removes a job, waits for in-flight edits and renders against it to
// finish, and evicts its cached artifacts. A running job is cancelled first.
func (m *Manager) Dispose(jobID string) error {
	m.mu.Lock()
	e, ok := m.jobs[jobID]
	if !ok || e.disposed {
		m.mu.Unlock()
		return services.Wrap(services.ErrNotFound, "job", "dispose", jobID, nil)
	}
	e.disposed = true
	cancel := e.cancel
	delete(m.jobs, jobID)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.refs.Wait()

	m.sink.Drop(jobID)
	if m.artifacts != nil {
		if err := m.artifacts.EvictJob(jobID); err != nil {
			m.logger.Warn("artifact eviction failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err))
		}
	}
	m.logger.Info("job disposed",
		logging.String(logging.FieldEventType, "job_disposed"),
		logging.String(logging.FieldJobID, jobID))
	return nil
}

// List returns snapshots of every registered job, newest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	snaps := make([]Snapshot, 0, len(m.jobs))
	for _, e := range m.jobs {
		if !e.disposed {
			snaps = append(snaps, e.job.snapshot())
		}
	}
	m.mu.RUnlock()
	for i := 1; i < len(snaps); i++ {
		for j := i; j > 0 && snaps[j].CreatedAt.After(snaps[j-1].CreatedAt); j-- {
			snaps[j], snaps[j-1] = snaps[j-1], snaps[j]
		}
	}
	return snaps
}

// WithModel runs fn against the segment model of a finished job while holding
// a reference that blocks disposal. Renders and reads go through here.
func (m *Manager) WithModel(jobID string, fn func(model *segment.Model) error) error {
	m.mu.Lock()
	e, ok := m.jobs[jobID]
	if !ok || e.disposed {
		m.mu.Unlock()
		return services.Wrap(services.ErrNotFound, "job", "access", jobID, nil)
	}
	if e.job.State != StateDone {
		state := e.job.State
		m.mu.Unlock()
		return services.Wrap(services.ErrInvalidState, "job", "access",
			fmt.Sprintf("job is %s, not done", state), nil)
	}
	model := e.job.Segments
	e.refs.Add(1)
	m.mu.Unlock()
	defer e.refs.Done()
	return fn(model)
}

func (m *Manager) worker(ctx context.Context) {
	defer m.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-m.queue:
			m.runJob(ctx, jobID)
		}
	}
}

func (m *Manager) runJob(ctx context.Context, jobID string) {
	m.mu.Lock()
	e, ok := m.jobs[jobID]
	if !ok || e.disposed || e.job.State != StateQueued {
		m.mu.Unlock()
		return
	}
	jobCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.job.State = StateRunning
	e.job.UpdatedAt = time.Now()
	source := e.source
	opts := e.job.Options
	snap := e.job.snapshot()
	m.mu.Unlock()
	m.sink.Publish(snap)

	report := func(stage string, percent int) {
		m.mu.Lock()
		if e.disposed || e.job.State != StateRunning {
			m.mu.Unlock()
			return
		}
		e.job.Stage = stage
		if percent > e.job.Progress {
			e.job.Progress = percent
		}
		e.job.UpdatedAt = time.Now()
		update := e.job.snapshot()
		m.mu.Unlock()
		m.sink.Publish(update)
	}

	start := time.Now()
	result, err := m.runner.Run(jobCtx, source, opts, report)
	cancel()

	m.mu.Lock()
	e.source = nil
	e.cancel = nil
	switch {
	case err == nil:
		e.job.State = StateDone
		e.job.Stage = ""
		e.job.Progress = 100
		e.job.Segments = result.Model
	case errors.Is(err, context.Canceled):
		e.job.State = StateCancelled
		e.job.Stage = ""
	default:
		e.job.State = StateError
		e.job.Error = err.Error()
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			e.job.Stage = stageErr.Stage
		}
	}
	e.job.UpdatedAt = time.Now()
	disposed := e.disposed
	final := e.job.snapshot()
	m.mu.Unlock()

	if !disposed {
		m.sink.Publish(final)
	}

	switch final.State {
	case StateDone:
		if m.artifacts != nil && result != nil && len(result.SVG) > 0 {
			if seedErr := m.artifacts.SeedSVG(jobID, result.Model.Version(), result.SVG); seedErr != nil {
				m.logger.Warn("seeding default export failed",
					logging.String(logging.FieldJobID, jobID),
					logging.Error(seedErr))
			}
		}
		m.logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_completed"),
			logging.String(logging.FieldJobID, jobID),
			logging.Int("layers", final.Layers),
			logging.Duration("duration", time.Since(start)))
	case StateCancelled:
		m.logger.Info("job cancelled",
			logging.String(logging.FieldEventType, "job_cancelled"),
			logging.String(logging.FieldJobID, jobID))
	default:
		m.logger.Error("job failed",
			logging.String(logging.FieldEventType, "job_failed"),
			logging.String(logging.FieldJobID, jobID),
			logging.String(logging.FieldStage, final.Stage),
			logging.Error(err))
	}
}

// sweeper disposes terminal jobs whose last update is older than the TTL.
func (m *Manager) sweeper(ctx context.Context) {
	defer m.workers.Done()
	ttl := time.Duration(m.cfg.Jobs.TTLSeconds) * time.Second
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-ttl)
			var expired []string
			m.mu.RLock()
			for id, e := range m.jobs {
				if !e.disposed && e.job.State.IsTerminal() && e.job.UpdatedAt.Before(cutoff) {
					expired = append(expired, id)
				}
			}
			m.mu.RUnlock()
			for _, id := range expired {
				if err := m.Dispose(id); err == nil {
					m.logger.Debug("expired job swept",
						logging.String(logging.FieldJobID, id))
				}
			}
		}
	}
}
