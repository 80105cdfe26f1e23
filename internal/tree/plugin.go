package tree

import (
	"context"
	"path"

	"publisher/internal/schema"
)

// Plugin is the plugin side of a task. Implementations wrap a loaded hook and
// the settings configured for it.
type Plugin interface {
	// Name is the configured instance name, unique within a plugin list.
	Name() string
	// DisplayName is the name the hook declares for itself.
	DisplayName() string
	// Path is the hook reference the instance was loaded from.
	Path() string
	// Configured returns the settings as written in configuration.
	Configured() map[string]any
	Description() string
	ItemFilters() []string
	// Settings returns the resolved settings; tasks clone them.
	Settings() schema.Settings

	Validate(ctx context.Context, settings schema.Settings, item *Item) (bool, error)
	Publish(ctx context.Context, settings schema.Settings, item *Item) error
	Finalize(ctx context.Context, settings schema.Settings, item *Item) error
}

// Resolver rebuilds plugins referenced by a serialized document.
type Resolver interface {
	ResolvePlugin(name, path string, settings map[string]any) (Plugin, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name, path string, settings map[string]any) (Plugin, error)

func (f ResolverFunc) ResolvePlugin(name, path string, settings map[string]any) (Plugin, error) {
	return f(name, path, settings)
}

// MatchesFilters reports whether any glob pattern matches typeSpec. "*"
// matches any run of characters, dots included.
func MatchesFilters(filters []string, typeSpec string) bool {
	for _, pattern := range filters {
		if ok, err := path.Match(pattern, typeSpec); err == nil && ok {
			return true
		}
	}
	return false
}

type pluginKey struct{}

// WithPlugin marks ctx as running on behalf of the named plugin instance.
func WithPlugin(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, pluginKey{}, name)
}

// PluginFromContext returns the plugin instance name ctx runs for.
func PluginFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(pluginKey{}).(string)
	return name, ok && name != ""
}
