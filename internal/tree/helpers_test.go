package tree_test

import (
	"context"
	"testing"

	"publisher/internal/schema"
	"publisher/internal/tree"
)

type stubPlugin struct {
	name       string
	path       string
	filters    []string
	configured map[string]any
	settings   schema.Settings
}

func newStubPlugin(t *testing.T, name string, filters ...string) *stubPlugin {
	t.Helper()
	settings, err := schema.Resolve(map[string]schema.Definition{
		"Publish Template": {Type: "str", Default: "{name}.v{version}"},
		"Frames":           {Type: "int", Default: 1},
	}, nil)
	if err != nil {
		t.Fatalf("resolve settings: %v", err)
	}
	return &stubPlugin{
		name:       name,
		path:       "builtin:" + name,
		filters:    filters,
		configured: map[string]any{},
		settings:   settings,
	}
}

func (p *stubPlugin) Name() string { return p.name }
func (p *stubPlugin) DisplayName() string { return "Stub " + p.name }
func (p *stubPlugin) Path() string { return p.path }
func (p *stubPlugin) Configured() map[string]any { return p.configured }
func (p *stubPlugin) Description() string { return "stub " + p.name }
func (p *stubPlugin) ItemFilters() []string { return p.filters }
func (p *stubPlugin) Settings() schema.Settings { return p.settings }

func (p *stubPlugin) Validate(context.Context, schema.Settings, *tree.Item) (bool, error) {
	return true, nil
}

func (p *stubPlugin) Publish(context.Context, schema.Settings, *tree.Item) error { return nil }

func (p *stubPlugin) Finalize(context.Context, schema.Settings, *tree.Item) error { return nil }

func resolverFor(plugins ...*stubPlugin) tree.Resolver {
	return tree.ResolverFunc(func(name, path string, settings map[string]any) (tree.Plugin, error) {
		for _, p := range plugins {
			if p.name == name && p.path == path {
				return p, nil
			}
		}
		return nil, errUnknownPlugin
	})
}
