package testsupport

import (
	"path/filepath"
	"testing"

	"framelabel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a default config whose log directory lives in a per-test
// temp dir, then applies opts.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithBatchSize overrides ingest.batch_size.
func WithBatchSize(n int) ConfigOption {
	return func(c *config.Config) {
		c.Ingest.BatchSize = n
	}
}

// WithBackend overrides output.backend.
func WithBackend(name string) ConfigOption {
	return func(c *config.Config) {
		c.Output.Backend = name
	}
}

// WithFramesPerSecond overrides ingest.frames_per_second.
func WithFramesPerSecond(fps float64) ConfigOption {
	return func(c *config.Config) {
		c.Ingest.FramesPerSecond = fps
	}
}
