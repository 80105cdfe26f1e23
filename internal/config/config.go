package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	TreeFile    string `toml:"tree_file"`
	HooksDir    string `toml:"hooks_dir"`
	LogDir      string `toml:"log_dir"`
	PublishRoot string `toml:"publish_root"`
	TrackingDB  string `toml:"tracking_db"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`

	// RunLogRetentionDays prunes per-run logs older than this. 0 keeps them forever.
	RunLogRetentionDays int `toml:"run_log_retention_days"`
}

// Session describes the host engine and the tracking context the session starts in.
type Session struct {
	Engine     string `toml:"engine"`
	Project    string `toml:"project"`
	EntityType string `toml:"entity_type"`
	EntityID   int64  `toml:"entity_id"`
	EntityName string `toml:"entity_name"`
	Step       string `toml:"step"`
	Task       string `toml:"task"`
	User       string `toml:"user"`
}

// Hook binds a hook reference to its configured settings.
//
// A reference is either "builtin:<name>" or a path to a .lua file, relative
// paths resolving against Paths.HooksDir.
type Hook struct {
	Hook     string         `toml:"hook"`
	Settings map[string]any `toml:"settings"`
}

// Plugin is one configured publish plugin instance.
type Plugin struct {
	Name     string         `toml:"name"`
	Hook     string         `toml:"hook"`
	Settings map[string]any `toml:"settings"`
}

// Environment overrides the publish plugin list for matching contexts.
// Empty match fields match anything.
type Environment struct {
	Name           string   `toml:"name"`
	EntityType     string   `toml:"entity_type"`
	Step           string   `toml:"step"`
	PublishPlugins []Plugin `toml:"publish_plugins"`
}

// Config encapsulates all configuration values for publisher.
//
// Configuration sections:
//   - Paths: tree document, hook scripts, logs, publish destination, tracking database
//   - Logging: log format and level
//   - Session: engine name and starting tracking context
//   - Collector: hook that populates the tree
//   - PublishPlugins: default publish plugin instances
//   - PostPhase: hook consulted after each phase
//   - Environments: per-context publish plugin overrides
type Config struct {
	Paths          Paths         `toml:"paths"`
	Logging        Logging       `toml:"logging"`
	Session        Session       `toml:"session"`
	Collector      Hook          `toml:"collector"`
	PublishPlugins []Plugin      `toml:"publish_plugins"`
	PostPhase      Hook          `toml:"post_phase"`
	Environments   []Environment `toml:"environments"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/publisher/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Lists in the file replace the defaults instead of appending to them.
		cfg.PublishPlugins = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("publisher.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the CLI writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, filepath.Dir(c.Paths.TreeFile), filepath.Dir(c.Paths.TrackingDB)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PluginsFor returns the publish plugin list for a tracking context described
// by its entity type and step. The first matching environment wins; without a
// match the top-level list applies.
func (c *Config) PluginsFor(entityType, step string) (string, []Plugin) {
	for _, env := range c.Environments {
		if env.EntityType != "" && !strings.EqualFold(env.EntityType, entityType) {
			continue
		}
		if env.Step != "" && !strings.EqualFold(env.Step, step) {
			continue
		}
		return env.Name, env.PublishPlugins
	}
	return "", c.PublishPlugins
}

// ResolveHookPath turns a hook reference into the form the hook loader expects.
// Builtin references pass through unchanged.
func (c *Config) ResolveHookPath(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, BuiltinPrefix) || filepath.IsAbs(ref) {
		return ref
	}
	if strings.HasPrefix(ref, "~") {
		if expanded, err := expandPath(ref); err == nil {
			return expanded
		}
		return ref
	}
	return filepath.Join(c.Paths.HooksDir, ref)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
