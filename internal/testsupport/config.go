package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"publisher/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths = config.Paths{
		TreeFile:    filepath.Join(base, "state", "tree.json"),
		HooksDir:    filepath.Join(base, "hooks"),
		LogDir:      filepath.Join(base, "logs"),
		PublishRoot: filepath.Join(base, "published"),
		TrackingDB:  filepath.Join(base, "state", "tracking.db"),
	}
	cfgVal.Session.Project = "test_project"
	cfgVal.Session.EntityType = "Shot"
	cfgVal.Session.EntityID = 1001
	cfgVal.Session.EntityName = "sh010"
	cfgVal.Session.Step = "comp"
	cfgVal.Session.User = "tester"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithPublishPlugins replaces the default publish plugin list.
func WithPublishPlugins(plugins ...config.Plugin) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.PublishPlugins = plugins
	}
}

// WithCollector sets the collector hook.
func WithCollector(hook string, settings map[string]any) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collector = config.Hook{Hook: hook, Settings: settings}
	}
}

// WithPostPhase sets the post-phase hook.
func WithPostPhase(hook string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.PostPhase = config.Hook{Hook: hook}
	}
}

// WithEnvironment appends a per-context plugin list.
func WithEnvironment(env config.Environment) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Environments = append(b.cfg.Environments, env)
	}
}

// WithHookScript writes a Lua hook into the hooks directory.
func WithHookScript(name, source string) ConfigOption {
	return func(b *configBuilder) {
		target := filepath.Join(b.cfg.Paths.HooksDir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			b.t.Fatalf("mkdir hooks dir: %v", err)
		}
		if err := os.WriteFile(target, []byte(source), 0o644); err != nil {
			b.t.Fatalf("write hook %s: %v", name, err)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
