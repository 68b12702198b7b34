package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"vectra/internal/artifact"
	"vectra/internal/batch"
	"vectra/internal/config"
	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/progress"
)

// Server exposes the HTTP and websocket surface over the job services.
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	manager     *job.Manager
	editor      *job.Editor
	hub         *progress.Hub
	cache       *artifact.Cache
	coordinator *batch.Coordinator

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer wires the handler set. Start must be called to begin serving.
func NewServer(cfg *config.Config, manager *job.Manager, editor *job.Editor, hub *progress.Hub, cache *artifact.Cache, coordinator *batch.Coordinator, logger *slog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "api"),
		manager:     manager,
		editor:      editor,
		hub:         hub,
		cache:       cache,
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The daemon binds to loopback by default; when exposed further
			// the deployment fronts it with its own origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Paths.APIBind,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/vectorize", s.handleVectorize).Methods(http.MethodPost)
	r.HandleFunc("/api/clipboard", s.handleClipboard).Methods(http.MethodPost)
	r.HandleFunc("/api/status/{job_id}", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/result/{job_id}", s.handleResult).Methods(http.MethodGet)
	r.HandleFunc("/api/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/api/cancel/{job_id}", s.handleCancel).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs", s.handleList).Methods(http.MethodGet)

	r.HandleFunc("/api/segment/recolor", s.handleRecolor).Methods(http.MethodPost)
	r.HandleFunc("/api/segment/merge", s.handleMerge).Methods(http.MethodPost)
	r.HandleFunc("/api/segment/split", s.handleSplit).Methods(http.MethodPost)
	r.HandleFunc("/api/segment/delete", s.handleDelete).Methods(http.MethodPost)

	r.HandleFunc("/api/batch", s.handleBatchSubmit).Methods(http.MethodPost)
	r.HandleFunc("/api/batch/status/{batch_id}", s.handleBatchStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/batch/download/{batch_id}", s.handleBatchDownload).Methods(http.MethodGet)
	r.HandleFunc("/api/batch/download-zip", s.handleDownloadZip).Methods(http.MethodPost)

	r.HandleFunc("/ws/status/{job_id}", s.handleStatusSocket).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.Use(s.logRequests)
	return r
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api listening",
		logging.String(logging.FieldEventType, "api_started"),
		logging.String("bind", s.cfg.Paths.APIBind))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
