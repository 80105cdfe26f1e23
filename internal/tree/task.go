package tree

import (
	"context"
	"fmt"

	"publisher/internal/properties"
	"publisher/internal/schema"
)

// Task binds one item to one plugin instance.
type Task struct {
	plugin      Plugin
	item        *Item
	name        string
	description string
	settings    schema.Settings

	active   bool
	visible  bool
	enabled  bool
	required bool
}

func newTask(plugin Plugin, item *Item) *Task {
	return &Task{
		plugin:   plugin,
		item:     item,
		settings: plugin.Settings().Clone(),
		active:   true,
		visible:  true,
		enabled:  true,
		required: true,
	}
}

func (t *Task) Plugin() Plugin { return t.plugin }
func (t *Task) Item() *Item { return t.item }

// Name returns the task name override or the plugin display name.
func (t *Task) Name() string {
	if t.name != "" {
		return t.name
	}
	return t.plugin.DisplayName()
}

func (t *Task) SetName(name string) { t.name = name }

// Description returns the task description override or the plugin's.
func (t *Task) Description() string {
	if t.description != "" {
		return t.description
	}
	return t.plugin.Description()
}

func (t *Task) SetDescription(desc string) { t.description = desc }

// Settings returns the task's own copy of the plugin settings.
func (t *Task) Settings() schema.Settings { return t.settings }

func (t *Task) Active() bool { return t.active }
func (t *Task) Visible() bool { return t.visible }
func (t *Task) Enabled() bool { return t.enabled }
func (t *Task) Required() bool { return t.required }
func (t *Task) SetVisible(v bool) { t.visible = v }
func (t *Task) SetEnabled(v bool) { t.enabled = v }
func (t *Task) SetRequired(v bool) { t.required = v }

// SetActive checks or unchecks the task. Required only informs presentation
// layers that the checkbox should stay locked; it is not enforced here.
func (t *Task) SetActive(v bool) { t.active = v }

// Runnable reports whether phases should execute the task.
func (t *Task) Runnable() bool {
	return t.active && t.enabled && t.item.Effective()
}

// Properties returns the plugin-local view of the item's properties.
func (t *Task) Properties() *properties.Overlay {
	return t.item.LocalPropertiesFor(t.plugin.Name())
}

func (t *Task) Validate(ctx context.Context) (bool, error) {
	return t.plugin.Validate(ctx, t.settings, t.item)
}

func (t *Task) Publish(ctx context.Context) error {
	return t.plugin.Publish(ctx, t.settings, t.item)
}

func (t *Task) Finalize(ctx context.Context) error {
	return t.plugin.Finalize(ctx, t.settings, t.item)
}

func (t *Task) String() string {
	return fmt.Sprintf("%s (%s)", t.Name(), t.item.name)
}
