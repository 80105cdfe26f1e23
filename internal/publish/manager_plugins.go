package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"publisher/internal/config"
	"publisher/internal/faults"
	"publisher/internal/logging"
	"publisher/internal/plugin"
	"publisher/internal/session"
	"publisher/internal/tree"
)

// LoadPublishPlugins returns the publish plugin instances configured for c.
// The list is built once per context; item filters are matched later, when
// tasks are attached.
func (m *Manager) LoadPublishPlugins(ctx context.Context, c session.Context) ([]*plugin.PublishInstance, error) {
	key := c.Key()
	if plugins, ok := m.contexts[key]; ok {
		return plugins, nil
	}
	envName, defs := m.cfg.PluginsFor(c.EntityType(), c.StepName())
	logger := m.logger.With(logging.String("context", c.String()))
	if envName != "" {
		logger = logger.With(logging.String("environment", envName))
	}

	plugins := make([]*plugin.PublishInstance, 0, len(defs))
	for _, def := range defs {
		inst, err := m.instance(ctx, def)
		if err != nil {
			return nil, err
		}
		logger.Debug("publish plugin ready",
			logging.String(logging.FieldPlugin, inst.Name()),
			logging.String(logging.FieldHook, inst.Path()),
		)
		plugins = append(plugins, inst)
	}
	m.contexts[key] = plugins
	return plugins, nil
}

// Plugins returns the publish plugins of the session context.
func (m *Manager) Plugins(ctx context.Context) ([]*plugin.PublishInstance, error) {
	return m.LoadPublishPlugins(ctx, m.session.Context)
}

// instance returns the cached instance for def or loads a new one. Two
// contexts configuring the same plugin share its instance.
func (m *Manager) instance(ctx context.Context, def config.Plugin) (*plugin.PublishInstance, error) {
	path := m.loader.Resolve(def.Hook)
	key, err := instanceKey(def.Name, path, def.Settings)
	if err != nil {
		return nil, err
	}
	if inst, ok := m.instances[key]; ok {
		return inst, nil
	}
	hook, err := m.loader.Load(ctx, def.Hook)
	if err != nil {
		return nil, err
	}
	inst, err := plugin.NewPublishInstance(def.Name, path, hook, def.Settings, m.logger)
	if err != nil {
		return nil, err
	}
	m.instances[key] = inst
	return inst, nil
}

// instanceKey identifies an instance by name, resolved hook path, and the
// canonical JSON of its configured settings. encoding/json sorts map keys,
// so equal settings always produce equal keys.
func instanceKey(name, path string, settings map[string]any) (string, error) {
	if settings == nil {
		settings = map[string]any{}
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return "", faults.Wrap(faults.ErrConfiguration, "publish", "plugin settings",
			fmt.Sprintf("settings for %q cannot be encoded", name), err)
	}
	return name + "\x00" + path + "\x00" + string(data), nil
}

// ResolvePlugin rebuilds the instance a serialized task referenced.
func (m *Manager) ResolvePlugin(ctx context.Context, name, path string, settings map[string]any) (tree.Plugin, error) {
	return m.instance(ctx, config.Plugin{Name: name, Hook: path, Settings: settings})
}

// attachPlugins offers each item to the plugins of its context and adds a
// task for every plugin whose filters match and whose accept agrees.
func (m *Manager) attachPlugins(ctx context.Context, items []*tree.Item) error {
	for _, item := range items {
		plugins, err := m.LoadPublishPlugins(ctx, item.Context())
		if err != nil {
			return err
		}
		logger := m.logger.With(
			logging.String(logging.FieldItem, item.Name()),
			logging.String(logging.FieldItemType, item.Type()),
		)
		for _, p := range plugins {
			if !p.Accepts(item.Type()) {
				continue
			}
			acceptance := p.RunAccept(ctx, item)
			if !acceptance.Accepted {
				logger.Debug("plugin declined item", logging.String(logging.FieldPlugin, p.Name()))
				continue
			}
			task, err := item.AddTask(p)
			if err != nil {
				return err
			}
			task.SetVisible(acceptance.Visible())
			task.SetActive(acceptance.Checked())
			task.SetEnabled(acceptance.Enabled())
			task.SetRequired(acceptance.Required())
			logger.Debug("task attached", logging.String(logging.FieldPlugin, p.Name()))
		}
	}
	return nil
}
