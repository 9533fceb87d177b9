package testsupport

import (
	"path/filepath"
	"testing"

	"affect/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ModelDir = filepath.Join(base, "models")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWindowSeconds overrides the prediction window length.
func WithWindowSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.WindowSeconds = seconds
	}
}

// WithCacheTTLSeconds overrides the active-prediction cache expiry horizon.
func WithCacheTTLSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Predictions.CacheTTLSeconds = seconds
	}
}

// WithLookbackWindows overrides how many windows feed one classification.
func WithLookbackWindows(windows int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.LookbackWindows = windows
	}
}
