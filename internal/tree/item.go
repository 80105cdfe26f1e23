package tree

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"publisher/internal/faults"
	"publisher/internal/properties"
	"publisher/internal/session"
)

const (
	rootName = "__root__"

	// DefaultIcon is reported for items and plugins that declare no icon.
	DefaultIcon = "builtin:icons/item.png"
)

// Item is a node of the publish tree.
type Item struct {
	name        string
	typeSpec    string
	typeDisplay string
	description string

	iconPath          string
	thumbnailPath     string
	thumbnailEnabled  bool
	thumbnailExplicit bool

	active              bool
	enabled             bool
	expanded            bool
	persistent          bool
	allowsContextChange bool

	context *session.Context
	root    bool

	parent   *Item
	children []*Item
	tasks    []*Task

	global *properties.Bag
	local  map[string]*properties.Bag
}

func newItem(typeSpec, typeDisplay, name string) *Item {
	return &Item{
		name:                name,
		typeSpec:            typeSpec,
		typeDisplay:         typeDisplay,
		thumbnailEnabled:    true,
		active:              true,
		enabled:             true,
		expanded:            true,
		allowsContextChange: true,
		global:              properties.New(),
		local:               map[string]*properties.Bag{},
	}
}

// CreateItem appends a new child item.
func (i *Item) CreateItem(typeSpec, typeDisplay, name string) *Item {
	child := newItem(typeSpec, typeDisplay, name)
	child.parent = i
	i.children = append(i.children, child)
	return child
}

// AddTask binds plugin to this item. The plugin's item filters must match the
// item type; the root never accepts tasks.
func (i *Item) AddTask(plugin Plugin) (*Task, error) {
	if i.root {
		return nil, faults.Wrap(faults.ErrTreeIntegrity, "item", "add task", "the root item cannot hold tasks", nil)
	}
	if !MatchesFilters(plugin.ItemFilters(), i.typeSpec) {
		return nil, faults.Wrap(faults.ErrTreeIntegrity, "item", "add task",
			fmt.Sprintf("plugin %q does not accept items of type %q", plugin.Name(), i.typeSpec), nil)
	}
	task := newTask(plugin, i)
	i.tasks = append(i.tasks, task)
	return task, nil
}

// ClearTasks detaches every task from the item.
func (i *Item) ClearTasks() {
	i.tasks = nil
}

// Remove detaches the item from its parent.
func (i *Item) Remove() error {
	if i.root {
		return faults.Wrap(faults.ErrTreeIntegrity, "item", "remove", "removing the root item is not allowed", nil)
	}
	if i.parent == nil {
		return faults.Wrap(faults.ErrTreeIntegrity, "item", "remove", fmt.Sprintf("item %q is already detached", i.name), nil)
	}
	return i.parent.RemoveChild(i)
}

// RemoveChild detaches child from this item.
func (i *Item) RemoveChild(child *Item) error {
	idx := slices.Index(i.children, child)
	if idx < 0 {
		return faults.Wrap(faults.ErrTreeIntegrity, "item", "remove",
			fmt.Sprintf("item %q is not a child of %q", child.name, i.name), nil)
	}
	i.children = slices.Delete(i.children, idx, idx+1)
	child.parent = nil
	return nil
}

func (i *Item) Name() string { return i.name }
func (i *Item) SetName(name string) { i.name = name }
func (i *Item) Type() string { return i.typeSpec }
func (i *Item) TypeDisplay() string { return i.typeDisplay }
func (i *Item) SetTypeDisplay(s string) { i.typeDisplay = s }
func (i *Item) Description() string { return i.description }
func (i *Item) SetDescription(desc string) { i.description = desc }
func (i *Item) IsRoot() bool { return i.root }
func (i *Item) Parent() *Item { return i.parent }

// Children returns a copy of the child list.
func (i *Item) Children() []*Item { return slices.Clone(i.children) }

// Tasks returns a copy of the task list.
func (i *Item) Tasks() []*Task { return slices.Clone(i.tasks) }

func (i *Item) Active() bool { return i.active }
func (i *Item) SetActive(v bool) { i.active = v }
func (i *Item) Enabled() bool { return i.enabled }
func (i *Item) SetEnabled(v bool) { i.enabled = v }
func (i *Item) Expanded() bool { return i.expanded }
func (i *Item) SetExpanded(v bool) { i.expanded = v }
func (i *Item) Persistent() bool { return i.persistent }
func (i *Item) AllowsContextChange() bool { return i.allowsContextChange }
func (i *Item) SetAllowsContextChange(v bool) { i.allowsContextChange = v }

// SetPersistent marks a top-level item to survive non-persistent clears.
func (i *Item) SetPersistent(v bool) error {
	if i.parent == nil || !i.parent.root {
		return faults.Wrap(faults.ErrTreeIntegrity, "item", "persistent",
			"only top-level tree items can be made persistent", nil)
	}
	i.persistent = v
	return nil
}

// Effective reports whether the item and all its ancestors are active.
func (i *Item) Effective() bool {
	for it := i; it != nil && !it.root; it = it.parent {
		if !it.active {
			return false
		}
	}
	return true
}

// Context returns the item's own context or the closest ancestor's.
func (i *Item) Context() session.Context {
	for it := i; it != nil; it = it.parent {
		if it.context != nil {
			return *it.context
		}
	}
	return session.Context{}
}

// SetContext pins a context on the item and, through inheritance, its children.
func (i *Item) SetContext(c session.Context) {
	i.context = &c
}

// Properties returns the global property bag shared by all tasks.
func (i *Item) Properties() *properties.Bag { return i.global }

// LocalProperties returns the local view for the plugin ctx runs on behalf of.
func (i *Item) LocalProperties(ctx context.Context) (*properties.Overlay, error) {
	name, ok := PluginFromContext(ctx)
	if !ok {
		return nil, faults.Wrap(faults.ErrHook, "item", "local properties",
			"local properties are only available while a plugin runs", nil)
	}
	return i.LocalPropertiesFor(name), nil
}

// LocalPropertiesFor returns the local view for the named plugin instance.
func (i *Item) LocalPropertiesFor(plugin string) *properties.Overlay {
	bag, ok := i.local[plugin]
	if !ok {
		bag = properties.New()
		i.local[plugin] = bag
	}
	return properties.NewOverlay(bag, i.global)
}

// SetIconFromPath sets the icon shown for the item.
func (i *Item) SetIconFromPath(path string) { i.iconPath = path }

// IconPath returns the item's icon, the parent's, or DefaultIcon.
func (i *Item) IconPath() string {
	for it := i; it != nil && !it.root; it = it.parent {
		if it.iconPath != "" {
			return it.iconPath
		}
	}
	return DefaultIcon
}

// SetThumbnailFromPath sets an explicit thumbnail.
func (i *Item) SetThumbnailFromPath(path string) {
	i.thumbnailPath = path
	i.thumbnailExplicit = path != ""
}

func (i *Item) ThumbnailEnabled() bool { return i.thumbnailEnabled }
func (i *Item) SetThumbnailEnabled(v bool) { i.thumbnailEnabled = v }
func (i *Item) ThumbnailExplicit() bool { return i.thumbnailExplicit }
func (i *Item) SetThumbnailExplicit(v bool) { i.thumbnailExplicit = v }

// GetThumbnailAsPath returns a thumbnail file for the item: its own, or the
// closest ancestor's. It returns "" when thumbnails are disabled or none is set.
func (i *Item) GetThumbnailAsPath() string {
	if !i.thumbnailEnabled {
		return ""
	}
	for it := i; it != nil && !it.root; it = it.parent {
		if it.thumbnailPath != "" {
			return it.thumbnailPath
		}
	}
	return ""
}

// Descendants yields every item below i in pre-order.
func (i *Item) Descendants() iter.Seq[*Item] {
	return func(yield func(*Item) bool) {
		i.walk(yield)
	}
}

func (i *Item) walk(yield func(*Item) bool) bool {
	for _, child := range i.children {
		if !yield(child) || !child.walk(yield) {
			return false
		}
	}
	return true
}

func (i *Item) String() string {
	return fmt.Sprintf("%s: %s", i.typeDisplay, i.name)
}
