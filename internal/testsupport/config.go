package testsupport

import (
	"path/filepath"
	"testing"

	"bookforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Generation keys are set, retries have no backoff, and renders are not spaced.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "catalog.yaml")
	cfgVal.Paths.RunStorePath = filepath.Join(base, "work", "runs.db")
	cfgVal.LLM.APIKey = "test"
	cfgVal.Gemini.APIKey = "test"
	cfgVal.Pipeline.RetryBackoffMS = 0
	cfgVal.Pipeline.RenderDelayMS = 0

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDPI overrides the raster resolution.
func WithDPI(dpi int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.DPI = float64(dpi)
	}
}

// WithStorage enables archive upload to the given endpoint.
func WithStorage(endpoint, bucket string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Enabled = true
		b.cfg.Storage.Endpoint = endpoint
		b.cfg.Storage.Bucket = bucket
		b.cfg.Storage.AccessKey = "test-access"
		b.cfg.Storage.SecretKey = "test-secret"
	}
}

// BaseDir returns the temp directory backing the config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
