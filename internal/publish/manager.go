package publish

import (
	"context"
	"log/slog"

	"publisher/internal/config"
	"publisher/internal/faults"
	"publisher/internal/hooks"
	"publisher/internal/logging"
	"publisher/internal/plugin"
	"publisher/internal/session"
	"publisher/internal/tree"
)

// Manager coordinates collection and phase execution over one publish tree.
// It is not safe for concurrent use.
type Manager struct {
	cfg     *config.Config
	loader  *hooks.Loader
	logger  *slog.Logger
	session session.Session
	history RunRecorder

	runLogDir  string
	runLogDays int

	tree      *tree.Tree
	collector *plugin.CollectorInstance
	postPhase *plugin.PostPhaseInstance

	// plugin lists by context key, and instances by name, hook, and settings
	contexts  map[string][]*plugin.PublishInstance
	instances map[string]*plugin.PublishInstance
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	session    *session.Session
	history    RunRecorder
	runLogDir  string
	runLogDays int
}

// WithSession replaces the session derived from configuration.
func WithSession(s session.Session) ManagerOption {
	return func(o *managerOptions) {
		o.session = &s
	}
}

// WithHistory records Run outcomes through recorder.
func WithHistory(recorder RunRecorder) ManagerOption {
	return func(o *managerOptions) {
		o.history = recorder
	}
}

// WithRunLogs writes a JSON log per Run into dir and prunes logs older than
// retentionDays before each run.
func WithRunLogs(dir string, retentionDays int) ManagerOption {
	return func(o *managerOptions) {
		o.runLogDir = dir
		o.runLogDays = retentionDays
	}
}

// NewManager loads the collector, the post-phase hook, and the publish
// plugins for the session context. Any hook that fails to load is a
// configuration error.
func NewManager(ctx context.Context, cfg *config.Config, loader *hooks.Loader, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil || loader == nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "publish", "new manager", "config and hook loader are required", nil)
	}
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	sess := session.FromConfig(cfg)
	if options.session != nil {
		sess = *options.session
	}

	m := &Manager{
		cfg:        cfg,
		loader:     loader,
		logger:     logging.NewComponentLogger(logger, "publish"),
		session:    sess,
		history:    options.history,
		runLogDir:  options.runLogDir,
		runLogDays: options.runLogDays,
		tree:       tree.New(sess.Context),
		contexts:   map[string][]*plugin.PublishInstance{},
		instances:  map[string]*plugin.PublishInstance{},
	}

	m.logger.Debug("loading collector", logging.String(logging.FieldHook, cfg.Collector.Hook))
	collectorHook, err := loader.Load(ctx, cfg.Collector.Hook)
	if err != nil {
		return nil, err
	}
	m.collector, err = plugin.NewCollectorInstance(loader.Resolve(cfg.Collector.Hook), collectorHook, cfg.Collector.Settings, logger)
	if err != nil {
		return nil, err
	}

	if cfg.PostPhase.Hook != "" {
		postHook, err := loader.Load(ctx, cfg.PostPhase.Hook)
		if err != nil {
			return nil, err
		}
		m.postPhase, err = plugin.NewPostPhaseInstance(loader.Resolve(cfg.PostPhase.Hook), postHook, logger)
		if err != nil {
			return nil, err
		}
	}

	m.logger.Debug("loading publish plugins for the session context", logging.String("context", sess.Context.String()))
	if _, err := m.LoadPublishPlugins(ctx, sess.Context); err != nil {
		return nil, err
	}
	return m, nil
}

// Tree returns the tree the manager operates on.
func (m *Manager) Tree() *tree.Tree { return m.tree }

// Session returns the session the manager was built for.
func (m *Manager) Session() session.Session { return m.session }

// Collector returns the loaded collector.
func (m *Manager) Collector() *plugin.CollectorInstance { return m.collector }
