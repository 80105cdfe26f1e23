package plugin

import (
	"context"

	"publisher/internal/schema"
	"publisher/internal/tree"
)

// Member names used for capability checks.
const (
	MemberName                  = "name"
	MemberDescription           = "description"
	MemberIcon                  = "icon"
	MemberSettings              = "settings"
	MemberItemFilters           = "item_filters"
	MemberAccept                = "accept"
	MemberValidate              = "validate"
	MemberPublish               = "publish"
	MemberFinalize              = "finalize"
	MemberCreateSettingsWidget  = "create_settings_widget"
	MemberGetUISettings         = "get_ui_settings"
	MemberSetUISettings         = "set_ui_settings"
	MemberProcessCurrentSession = "process_current_session"
	MemberProcessFile           = "process_file"
	MemberPostValidate          = "post_validate"
	MemberPostPublish           = "post_publish"
	MemberPostFinalize          = "post_finalize"
)

// Capabilities lets a hook report which optional members it really provides.
type Capabilities interface {
	Has(member string) bool
}

type Namer interface {
	Name() string
}

type Describer interface {
	Description() string
}

type IconProvider interface {
	Icon() string
}

// SettingsDeclarer declares the settings schema a hook understands.
type SettingsDeclarer interface {
	SettingsSchema() (map[string]schema.Definition, error)
}

type ItemFilterer interface {
	ItemFilters() []string
}

type Accepter interface {
	Accept(ctx context.Context, settings schema.Settings, item *tree.Item) (Acceptance, error)
}

type Validator interface {
	Validate(ctx context.Context, settings schema.Settings, item *tree.Item) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, settings schema.Settings, item *tree.Item) error
}

type Finalizer interface {
	Finalize(ctx context.Context, settings schema.Settings, item *tree.Item) error
}

// Custom settings UI. A hook provides either the plain or the Items variant
// of each member; the instance calls whichever exists.
type (
	SettingsWidgetCreator interface {
		CreateSettingsWidget(parent any) (any, error)
	}
	ItemsSettingsWidgetCreator interface {
		CreateSettingsWidget(parent any, items []*tree.Item) (any, error)
	}
	UISettingsGetter interface {
		GetUISettings(widget any) (map[string]any, error)
	}
	ItemsUISettingsGetter interface {
		GetUISettings(widget any, items []*tree.Item) (map[string]any, error)
	}
	UISettingsSetter interface {
		SetUISettings(widget any, settings []map[string]any) error
	}
	ItemsUISettingsSetter interface {
		SetUISettings(widget any, settings []map[string]any, items []*tree.Item) error
	}
)

// Collector hooks populate the tree.
type (
	SessionProcessor interface {
		ProcessCurrentSession(ctx context.Context, settings schema.Settings, parent *tree.Item) error
	}
	FileProcessor interface {
		ProcessFile(ctx context.Context, settings schema.Settings, parent *tree.Item, path string) error
	}
	FileArgsProcessor interface {
		ProcessFile(ctx context.Context, settings schema.Settings, parent *tree.Item, path string, args map[string]any) error
	}
)

// Post-phase hooks observe each phase after it completes.
type (
	PostValidator interface {
		PostValidate(ctx context.Context, t *tree.Tree, failed []ItemFailures) (Verdict, error)
	}
	PostPublisher interface {
		PostPublish(ctx context.Context, t *tree.Tree) error
	}
	PostFinalizer interface {
		PostFinalize(ctx context.Context, t *tree.Tree) error
	}
)

// capability returns hook as T when it implements T and, for hooks that
// report capabilities, actually provides member.
func capability[T any](hook any, member string) (T, bool) {
	var zero T
	impl, ok := hook.(T)
	if !ok {
		return zero, false
	}
	if c, ok := hook.(Capabilities); ok && !c.Has(member) {
		return zero, false
	}
	return impl, true
}
