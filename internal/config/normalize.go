package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeHooks()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.tree_file", &c.Paths.TreeFile, defaultTreeFile},
		{"paths.hooks_dir", &c.Paths.HooksDir, defaultHooksDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.publish_root", &c.Paths.PublishRoot, defaultPublishRoot},
		{"paths.tracking_db", &c.Paths.TrackingDB, defaultTrackingDB},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeHooks() {
	c.Session.Engine = strings.TrimSpace(c.Session.Engine)
	if c.Session.Engine == "" {
		c.Session.Engine = defaultEngine
	}
	c.Collector.Hook = strings.TrimSpace(c.Collector.Hook)
	if c.Collector.Hook == "" {
		c.Collector.Hook = defaultCollector
	}
	c.PostPhase.Hook = strings.TrimSpace(c.PostPhase.Hook)
	if c.PostPhase.Hook == "" {
		c.PostPhase.Hook = defaultPostPhase
	}
	trimPlugins(c.PublishPlugins)
	for i := range c.Environments {
		c.Environments[i].Name = strings.TrimSpace(c.Environments[i].Name)
		c.Environments[i].EntityType = strings.TrimSpace(c.Environments[i].EntityType)
		c.Environments[i].Step = strings.TrimSpace(c.Environments[i].Step)
		trimPlugins(c.Environments[i].PublishPlugins)
	}
}

func trimPlugins(plugins []Plugin) {
	for i := range plugins {
		plugins[i].Name = strings.TrimSpace(plugins[i].Name)
		plugins[i].Hook = strings.TrimSpace(plugins[i].Hook)
	}
}
