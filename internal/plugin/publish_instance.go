package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"

	"publisher/internal/faults"
	"publisher/internal/logging"
	"publisher/internal/schema"
	"publisher/internal/tree"
)

const (
	DefaultName        = "Untitled Integration."
	DefaultDescription = "No detailed description provided."
	DefaultIcon        = "builtin:icons/plugin.png"
)

// PublishInstance is one configured publish plugin.
type PublishInstance struct {
	id         string
	name       string
	path       string
	configured map[string]any
	hook       any
	logger     *slog.Logger

	displayName string
	description string
	icon        string
	filters     []string
	settings    schema.Settings

	accepter  Accepter
	validator Validator
	publisher Publisher
	finalizer Finalizer

	createWidget func(parent any, items []*tree.Item) (any, error)
	getUI        func(widget any, items []*tree.Item) (map[string]any, error)
	setUI        func(widget any, settings []map[string]any, items []*tree.Item) error
}

var _ tree.Plugin = (*PublishInstance)(nil)

// NewPublishInstance inspects hook once, caching its metadata and callables.
// A settings schema that cannot be resolved against configured is a
// configuration error.
func NewPublishInstance(name, path string, hook any, configured map[string]any, logger *slog.Logger) (*PublishInstance, error) {
	if hook == nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "plugin", name, fmt.Sprintf("hook %q did not load", path), nil)
	}
	p := &PublishInstance{
		id:          uuid.NewString(),
		name:        name,
		path:        path,
		configured:  maps.Clone(configured),
		hook:        hook,
		displayName: DefaultName,
		description: DefaultDescription,
		icon:        DefaultIcon,
		filters:     []string{},
	}
	if p.configured == nil {
		p.configured = map[string]any{}
	}
	p.logger = logging.NewComponentLogger(logger, "plugin").With(
		logging.String(logging.FieldPlugin, name),
		logging.String(logging.FieldHook, path),
	)

	if h, ok := capability[Namer](hook, MemberName); ok && h.Name() != "" {
		p.displayName = h.Name()
	}
	if h, ok := capability[Describer](hook, MemberDescription); ok && h.Description() != "" {
		p.description = h.Description()
	}
	if h, ok := capability[IconProvider](hook, MemberIcon); ok && h.Icon() != "" {
		p.icon = h.Icon()
	}
	if h, ok := capability[ItemFilterer](hook, MemberItemFilters); ok && h.ItemFilters() != nil {
		p.filters = slices.Clone(h.ItemFilters())
	}

	defs := map[string]schema.Definition{}
	if h, ok := capability[SettingsDeclarer](hook, MemberSettings); ok {
		declared, err := h.SettingsSchema()
		if err != nil {
			return nil, faults.Wrap(faults.ErrConfiguration, "plugin", name, "read settings schema", err)
		}
		defs = declared
	}
	settings, err := schema.Resolve(defs, p.configured)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "plugin", name, "resolve settings", err)
	}
	p.settings = settings

	p.accepter, _ = capability[Accepter](hook, MemberAccept)
	p.validator, _ = capability[Validator](hook, MemberValidate)
	p.publisher, _ = capability[Publisher](hook, MemberPublish)
	p.finalizer, _ = capability[Finalizer](hook, MemberFinalize)
	p.bindCustomUI()

	return p, nil
}

func (p *PublishInstance) bindCustomUI() {
	if h, ok := capability[ItemsSettingsWidgetCreator](p.hook, MemberCreateSettingsWidget); ok {
		p.createWidget = h.CreateSettingsWidget
	} else if h, ok := capability[SettingsWidgetCreator](p.hook, MemberCreateSettingsWidget); ok {
		p.createWidget = func(parent any, _ []*tree.Item) (any, error) { return h.CreateSettingsWidget(parent) }
	}
	if h, ok := capability[ItemsUISettingsGetter](p.hook, MemberGetUISettings); ok {
		p.getUI = h.GetUISettings
	} else if h, ok := capability[UISettingsGetter](p.hook, MemberGetUISettings); ok {
		p.getUI = func(widget any, _ []*tree.Item) (map[string]any, error) { return h.GetUISettings(widget) }
	}
	if h, ok := capability[ItemsUISettingsSetter](p.hook, MemberSetUISettings); ok {
		p.setUI = h.SetUISettings
	} else if h, ok := capability[UISettingsSetter](p.hook, MemberSetUISettings); ok {
		p.setUI = func(widget any, settings []map[string]any, _ []*tree.Item) error {
			return h.SetUISettings(widget, settings)
		}
	}
}

// ID is unique per loaded instance.
func (p *PublishInstance) ID() string { return p.id }
func (p *PublishInstance) Name() string { return p.name }
func (p *PublishInstance) DisplayName() string { return p.displayName }
func (p *PublishInstance) Path() string { return p.path }
func (p *PublishInstance) Description() string { return p.description }
func (p *PublishInstance) Icon() string { return p.icon }
func (p *PublishInstance) ItemFilters() []string { return slices.Clone(p.filters) }
func (p *PublishInstance) Settings() schema.Settings { return p.settings }
func (p *PublishInstance) Hook() any { return p.hook }

// Configured returns a copy of the settings as configured.
func (p *PublishInstance) Configured() map[string]any { return maps.Clone(p.configured) }

// HasCustomUI reports whether the hook builds its own settings widget.
func (p *PublishInstance) HasCustomUI() bool { return p.createWidget != nil }

// Accepts reports whether the plugin's item filters match itemType.
func (p *PublishInstance) Accepts(itemType string) bool {
	return tree.MatchesFilters(p.filters, itemType)
}

// RunAccept asks the hook about item. Hooks without accept take every item
// their filters match. Errors and panics are logged and become rejections.
func (p *PublishInstance) RunAccept(ctx context.Context, item *tree.Item) Acceptance {
	if p.accepter == nil {
		return Accept()
	}
	var result Acceptance
	err := guard(p.name, MemberAccept, func() error {
		var err error
		result, err = p.accepter.Accept(tree.WithPlugin(ctx, p.name), p.settings, item)
		return err
	})
	if err != nil {
		p.itemLogger(ctx, item).Error("plugin accept failed; item rejected",
			logging.Error(err),
			logging.String(logging.FieldEventType, "accept_failed"),
		)
		return Reject()
	}
	return result
}

// Validate runs the hook's validate. Hooks without validate pass.
func (p *PublishInstance) Validate(ctx context.Context, settings schema.Settings, item *tree.Item) (bool, error) {
	if p.validator == nil {
		return true, nil
	}
	var ok bool
	err := guard(p.name, MemberValidate, func() error {
		var err error
		ok, err = p.validator.Validate(tree.WithPlugin(ctx, p.name), settings, item)
		return err
	})
	if err != nil {
		p.itemLogger(ctx, item).Error("plugin validate failed", logging.Error(err))
		return false, err
	}
	return ok, nil
}

// Publish runs the hook's publish; errors are logged and returned unchanged.
func (p *PublishInstance) Publish(ctx context.Context, settings schema.Settings, item *tree.Item) error {
	if p.publisher == nil {
		return nil
	}
	err := guard(p.name, MemberPublish, func() error {
		return p.publisher.Publish(tree.WithPlugin(ctx, p.name), settings, item)
	})
	if err != nil {
		p.itemLogger(ctx, item).Error("plugin publish failed", logging.Error(err))
	}
	return err
}

// Finalize runs the hook's finalize; errors are logged and returned unchanged.
func (p *PublishInstance) Finalize(ctx context.Context, settings schema.Settings, item *tree.Item) error {
	if p.finalizer == nil {
		return nil
	}
	err := guard(p.name, MemberFinalize, func() error {
		return p.finalizer.Finalize(tree.WithPlugin(ctx, p.name), settings, item)
	})
	if err != nil {
		p.itemLogger(ctx, item).Error("plugin finalize failed", logging.Error(err))
	}
	return err
}

// CreateSettingsWidget builds the hook's custom settings widget for items.
func (p *PublishInstance) CreateSettingsWidget(parent any, items []*tree.Item) (any, error) {
	if p.createWidget == nil {
		return nil, faults.Wrap(faults.ErrNotFound, "plugin", p.name, "no custom settings widget", nil)
	}
	var widget any
	err := guard(p.name, MemberCreateSettingsWidget, func() error {
		var err error
		widget, err = p.createWidget(parent, items)
		return err
	})
	return widget, err
}

// GetUISettings reads settings back from a custom widget.
func (p *PublishInstance) GetUISettings(widget any, items []*tree.Item) (map[string]any, error) {
	if p.getUI == nil {
		return map[string]any{}, nil
	}
	var out map[string]any
	err := guard(p.name, MemberGetUISettings, func() error {
		var err error
		out, err = p.getUI(widget, items)
		return err
	})
	return out, err
}

// SetUISettings pushes task settings into a custom widget.
func (p *PublishInstance) SetUISettings(widget any, settings []map[string]any, items []*tree.Item) error {
	if p.setUI == nil {
		return nil
	}
	return guard(p.name, MemberSetUISettings, func() error {
		return p.setUI(widget, settings, items)
	})
}

func (p *PublishInstance) itemLogger(ctx context.Context, item *tree.Item) *slog.Logger {
	return logging.WithContext(ctx, p.logger).With(
		logging.String(logging.FieldItem, item.Name()),
		logging.String(logging.FieldItemType, item.Type()),
	)
}
