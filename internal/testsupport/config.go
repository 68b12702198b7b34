package testsupport

import (
	"path/filepath"
	"testing"

	"vectra/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Jobs.Workers = 2
	cfg.Jobs.QueueDepth = 16
	cfg.Jobs.TTLSeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers overrides the worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) { cfg.Jobs.Workers = n }
}

// WithQueueDepth overrides the queue capacity.
func WithQueueDepth(n int) ConfigOption {
	return func(cfg *config.Config) { cfg.Jobs.QueueDepth = n }
}

// WithMaxUploadBytes overrides the single-upload size limit.
func WithMaxUploadBytes(n int64) ConfigOption {
	return func(cfg *config.Config) { cfg.Jobs.MaxUploadBytes = n }
}
