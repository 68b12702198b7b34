package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vectra/internal/api"
	"vectra/internal/artifact"
	"vectra/internal/batch"
	"vectra/internal/config"
	"vectra/internal/export"
	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/pipeline"
	"vectra/internal/progress"
	"vectra/internal/vectorize"
)

const shutdownGrace = 10 * time.Second

// Daemon wires the conversion services together and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store       *artifact.Store
	cache       *artifact.Cache
	hub         *progress.Hub
	manager     *job.Manager
	editor      *job.Editor
	coordinator *batch.Coordinator
	server      *api.Server

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	cancel   context.CancelFunc
	serveErr chan error
}

// Status summarizes daemon runtime state for the CLI.
type Status struct {
	Running      bool
	Bind         string
	Jobs         []job.Snapshot
	LockFilePath string
}

// New builds the full service graph. Nothing starts until Start is called.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	store, err := artifact.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	cache := artifact.NewCache(store, export.NewRenderer(), logger)
	hub := progress.NewHub(cfg.Jobs.SubscriberBuffer, logger)
	runner := pipeline.NewRunner(vectorize.DefaultToolset(logger), logger)
	manager := job.NewManager(cfg, runner, hub, cache, logger)
	editor := job.NewEditor(manager, vectorize.NewSplitter(logger), logger)
	coordinator := batch.NewCoordinator(manager, cache, logger)
	server := api.NewServer(cfg, manager, editor, hub, cache, coordinator, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "vectrad.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       store,
		cache:       cache,
		hub:         hub,
		manager:     manager,
		editor:      editor,
		coordinator: coordinator,
		server:      server,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
		serveErr:    make(chan error, 1),
	}, nil
}

// Start acquires the instance lock, starts the worker pool, and begins
// serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vectra daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.manager.Start(runCtx)
	go func() {
		d.serveErr <- d.server.Start()
	}()

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("bind", d.cfg.Paths.APIBind),
		logging.String("lock", d.lockPath))
	return nil
}

// Wait blocks until the API listener exits.
func (d *Daemon) Wait() error {
	return <-d.serveErr
}

// Stop shuts the API down gracefully, stops the workers, and releases the
// lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("api shutdown incomplete", logging.Error(err))
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the artifact store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for the CLI status command.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Bind:         d.cfg.Paths.APIBind,
		Jobs:         d.manager.List(),
		LockFilePath: d.lockPath,
	}
}
