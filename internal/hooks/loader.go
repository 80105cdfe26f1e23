// Package hooks turns hook references from configuration into loaded hooks.
//
// A reference is either "builtin:<name>", naming a Go hook registered with
// the loader, or a path to a Lua script. Relative script paths resolve
// against the configured hooks directory.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"publisher/internal/config"
	"publisher/internal/faults"
	"publisher/internal/logging"
	"publisher/internal/lua"
	"publisher/internal/tracking"
)

// Env is handed to every hook factory.
type Env struct {
	Config   *config.Config
	Logger   *slog.Logger
	Tracking tracking.Client
}

// Factory builds a Go hook.
type Factory func(env Env) any

// Loader resolves and caches hooks. Scripts are loaded once per path and
// shared by every instance that references them.
type Loader struct {
	env      Env
	logger   *slog.Logger
	mu       sync.Mutex
	builtins map[string]Factory
	scripts  map[string]*lua.Hook
}

func NewLoader(env Env) *Loader {
	if env.Logger == nil {
		env.Logger = logging.NewNop()
	}
	return &Loader{
		env:      env,
		logger:   logging.NewComponentLogger(env.Logger, "hooks"),
		builtins: map[string]Factory{},
		scripts:  map[string]*lua.Hook{},
	}
}

// Register adds a Go hook reachable as "builtin:<name>".
func (l *Loader) Register(name string, factory Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.builtins[name] = factory
}

// Builtins lists the registered Go hook names.
func (l *Loader) Builtins() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.builtins))
	for name := range l.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the canonical form of ref: builtin references unchanged,
// script paths absolute.
func (l *Loader) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, config.BuiltinPrefix) || l.env.Config == nil {
		return ref
	}
	return l.env.Config.ResolveHookPath(ref)
}

// Load returns the hook ref names. Failures are configuration errors.
func (l *Loader) Load(ctx context.Context, ref string) (any, error) {
	resolved := l.Resolve(ref)
	if resolved == "" {
		return nil, faults.Wrap(faults.ErrConfiguration, "hooks", "load", "empty hook reference", nil)
	}
	if name, ok := strings.CutPrefix(resolved, config.BuiltinPrefix); ok {
		l.mu.Lock()
		factory, found := l.builtins[name]
		l.mu.Unlock()
		if !found {
			return nil, faults.Wrap(faults.ErrConfiguration, "hooks", "load", fmt.Sprintf("unknown builtin hook %q", name), nil)
		}
		return factory(l.env), nil
	}
	if !strings.EqualFold(filepath.Ext(resolved), ".lua") {
		return nil, faults.Wrap(faults.ErrConfiguration, "hooks", "load",
			fmt.Sprintf("unsupported hook %q: expected builtin:<name> or a .lua script", ref), nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if hook, ok := l.scripts[resolved]; ok {
		return hook, nil
	}
	hook, err := lua.LoadFile(ctx, resolved, lua.Env{
		Logger:   l.env.Logger.With(logging.String(logging.FieldHook, resolved)),
		Tracking: l.env.Tracking,
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded script hook", logging.String(logging.FieldHook, resolved))
	l.scripts[resolved] = hook
	return hook, nil
}

// Close releases every loaded script.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for path, hook := range l.scripts {
		hook.Close()
		delete(l.scripts, path)
	}
}
