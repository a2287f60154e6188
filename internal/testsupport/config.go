package testsupport

import (
	"path/filepath"
	"testing"

	"bidsify/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogDB = filepath.Join(base, "catalog", "catalog.db")
	cfgVal.Classify.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTablesFile writes content to a tables file in the config's temp
// directory and points the config at it. name selects the format by extension.
func WithTablesFile(name, content string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, name)
		WriteFile(b.t, path, content)
		b.cfg.Paths.TablesFile = path
	}
}

// WithCatalog enables history recording.
func WithCatalog() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.Enabled = true
	}
}

// WithDefaultSession overrides the label used for sigil-only sessions.
func WithDefaultSession(label string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classify.DefaultSession = label
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
