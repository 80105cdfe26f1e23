package config

import "fmt"

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := validatePlugins("publish_plugins", c.PublishPlugins); err != nil {
		return err
	}
	if err := c.validateEnvironments(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RunLogRetentionDays < 0 {
		return fmt.Errorf("logging.run_log_retention_days: must be zero or positive, got %d", c.Logging.RunLogRetentionDays)
	}
	return nil
}

func (c *Config) validateEnvironments() error {
	seen := make(map[string]struct{}, len(c.Environments))
	for i, env := range c.Environments {
		key := fmt.Sprintf("environments[%d]", i)
		if env.Name == "" {
			return fmt.Errorf("%s.name must be set", key)
		}
		if _, ok := seen[env.Name]; ok {
			return fmt.Errorf("%s.name %q is duplicated", key, env.Name)
		}
		seen[env.Name] = struct{}{}
		if env.EntityType == "" && env.Step == "" {
			return fmt.Errorf("%s needs entity_type or step to match against", key)
		}
		if err := validatePlugins(key+".publish_plugins", env.PublishPlugins); err != nil {
			return err
		}
	}
	return nil
}

func validatePlugins(key string, plugins []Plugin) error {
	names := make(map[string]struct{}, len(plugins))
	for i, plugin := range plugins {
		if plugin.Name == "" {
			return fmt.Errorf("%s[%d].name must be set", key, i)
		}
		if plugin.Hook == "" {
			return fmt.Errorf("%s[%d].hook must be set", key, i)
		}
		if _, ok := names[plugin.Name]; ok {
			return fmt.Errorf("%s: plugin name %q is duplicated", key, plugin.Name)
		}
		names[plugin.Name] = struct{}{}
	}
	return nil
}
