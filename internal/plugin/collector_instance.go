package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"publisher/internal/faults"
	"publisher/internal/logging"
	"publisher/internal/schema"
	"publisher/internal/tree"
)

// CollectorInstance wraps the hook that populates the tree. Collector
// failures are logged and contained; a broken collector leaves the tree as
// it was.
type CollectorInstance struct {
	path     string
	hook     any
	settings schema.Settings
	logger   *slog.Logger

	session  SessionProcessor
	file     FileProcessor
	fileArgs FileArgsProcessor
}

// NewCollectorInstance resolves the collector's declared settings against
// configured.
func NewCollectorInstance(path string, hook any, configured map[string]any, logger *slog.Logger) (*CollectorInstance, error) {
	if hook == nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "collector", path, "hook did not load", nil)
	}
	c := &CollectorInstance{
		path:   path,
		hook:   hook,
		logger: logging.NewComponentLogger(logger, "collector").With(logging.String(logging.FieldHook, path)),
	}
	defs := map[string]schema.Definition{}
	if h, ok := capability[SettingsDeclarer](hook, MemberSettings); ok {
		declared, err := h.SettingsSchema()
		if err != nil {
			return nil, faults.Wrap(faults.ErrConfiguration, "collector", path, "read settings schema", err)
		}
		defs = declared
	}
	settings, err := schema.Resolve(defs, maps.Clone(configured))
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "collector", path, "resolve settings", err)
	}
	c.settings = settings
	c.session, _ = capability[SessionProcessor](hook, MemberProcessCurrentSession)
	c.fileArgs, _ = capability[FileArgsProcessor](hook, MemberProcessFile)
	if c.fileArgs == nil {
		c.file, _ = capability[FileProcessor](hook, MemberProcessFile)
	}
	return c, nil
}

func (c *CollectorInstance) Path() string { return c.path }
func (c *CollectorInstance) Settings() schema.Settings { return c.settings }

// ProcessCurrentSession asks the collector to add session items under parent.
func (c *CollectorInstance) ProcessCurrentSession(ctx context.Context, parent *tree.Item) {
	if c.session == nil {
		return
	}
	err := guard(c.path, MemberProcessCurrentSession, func() error {
		return c.session.ProcessCurrentSession(ctx, c.settings, parent)
	})
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, c.logger), "session collection failed",
			"collect_failed", "check the collector hook", logging.Error(err))
	}
}

// ProcessFile asks the collector to add items for path under parent. Hooks
// that take no arguments map never see args.
func (c *CollectorInstance) ProcessFile(ctx context.Context, parent *tree.Item, path string, args map[string]any) {
	var run func() error
	switch {
	case c.fileArgs != nil:
		if args == nil {
			args = map[string]any{}
		}
		run = func() error { return c.fileArgs.ProcessFile(ctx, c.settings, parent, path, args) }
	case c.file != nil:
		run = func() error { return c.file.ProcessFile(ctx, c.settings, parent, path) }
	default:
		return
	}
	if err := guard(c.path, MemberProcessFile, run); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, c.logger), fmt.Sprintf("file collection failed for %s", path),
			"collect_failed", "check the collector hook", logging.Error(err))
	}
}
