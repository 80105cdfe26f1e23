package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"publisher/internal/faults"
	"publisher/internal/properties"
	"publisher/internal/session"
)

// SerializationVersion is the document version this package writes and reads.
const SerializationVersion = 1

// VersionError reports a document whose serialization version is missing or
// not supported.
type VersionError struct {
	Version string
	Missing bool
}

func (e *VersionError) Error() string {
	if e.Missing {
		return fmt.Sprintf("unrecognized serialization version (missing version), expected %d", SerializationVersion)
	}
	return fmt.Sprintf("unrecognized serialization version (%s), expected %d", e.Version, SerializationVersion)
}

func (e *VersionError) Unwrap() error { return faults.ErrSerialization }

// Document is the serialized form of a Tree.
type Document struct {
	SerializationVersion int          `json:"serialization_version"`
	RootItem             ItemDocument `json:"root_item"`
}

// ItemDocument is the serialized form of an Item and its subtree.
type ItemDocument struct {
	Active              bool                        `json:"active"`
	AllowsContextChange bool                        `json:"allows_context_change"`
	Children            []ItemDocument              `json:"children"`
	Context             *session.Context            `json:"context,omitempty"`
	Description         string                      `json:"description"`
	Enabled             bool                        `json:"enabled"`
	Expanded            bool                        `json:"expanded"`
	GlobalProperties    *properties.Dict            `json:"global_properties"`
	IconPath            string                      `json:"icon_path"`
	LocalProperties     map[string]*properties.Dict `json:"local_properties"`
	Name                string                      `json:"name"`
	Persistent          bool                        `json:"persistent"`
	Tasks               []TaskDocument              `json:"tasks"`
	ThumbnailEnabled    bool                        `json:"thumbnail_enabled"`
	ThumbnailExplicit   bool                        `json:"thumbnail_explicit"`
	ThumbnailPath       string                      `json:"thumbnail_path"`
	TypeDisplay         string                      `json:"type_display"`
	TypeSpec            string                      `json:"type_spec"`
}

// TaskDocument is the serialized form of a Task.
type TaskDocument struct {
	PluginName     string                     `json:"plugin_name"`
	PluginPath     string                     `json:"plugin_path"`
	PluginSettings map[string]any             `json:"plugin_settings"`
	Name           string                     `json:"name,omitempty"`
	Description    string                     `json:"description,omitempty"`
	Settings       map[string]SettingDocument `json:"settings"`
	Active         bool                       `json:"active"`
	Visible        bool                       `json:"visible"`
	Enabled        bool                       `json:"enabled"`
	Required       bool                       `json:"required"`
}

// SettingDocument is the serialized form of a resolved setting.
type SettingDocument struct {
	Type         string `json:"type"`
	DefaultValue any    `json:"default_value"`
	Description  string `json:"description"`
	Value        any    `json:"value"`
}

// ToDict converts the tree into a Document. It fails if any property holds a
// value that cannot be serialized.
func (t *Tree) ToDict() (Document, error) {
	root, err := itemToDict(t.root)
	if err != nil {
		return Document{}, err
	}
	return Document{SerializationVersion: SerializationVersion, RootItem: root}, nil
}

// FromDict builds a new tree from doc, resolving plugins through resolver.
// Nothing is returned unless the whole document loads.
func FromDict(doc Document, resolver Resolver) (*Tree, error) {
	switch doc.SerializationVersion {
	case SerializationVersion:
	case 0:
		return nil, &VersionError{Missing: true}
	default:
		return nil, &VersionError{Version: strconv.Itoa(doc.SerializationVersion)}
	}

	root, err := itemFromDict(doc.RootItem, resolver)
	if err != nil {
		return nil, err
	}
	root.root = true
	return &Tree{root: root}, nil
}

// Encode writes the tree document as indented JSON.
func (t *Tree) Encode(w io.Writer) error {
	doc, err := t.ToDict()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Decode reads a tree document. The version is checked before the body is
// decoded, so a payload from another version reports the version problem
// rather than a shape mismatch.
func Decode(r io.Reader, resolver Resolver) (*Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tree document: %w", err)
	}

	var header struct {
		Version json.RawMessage `json:"serialization_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, faults.Wrap(faults.ErrSerialization, "tree", "decode", "invalid document", err)
	}
	raw := bytes.TrimSpace(header.Version)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, &VersionError{Missing: true}
	}
	var version int
	if err := json.Unmarshal(raw, &version); err != nil || version != SerializationVersion {
		return nil, &VersionError{Version: string(raw)}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, faults.Wrap(faults.ErrSerialization, "tree", "decode", "invalid document", err)
	}
	return FromDict(doc, resolver)
}

func itemToDict(item *Item) (ItemDocument, error) {
	global, err := item.global.ToDict()
	if err != nil {
		return ItemDocument{}, fmt.Errorf("item %q: %w", item.name, err)
	}
	local := make(map[string]*properties.Dict, len(item.local))
	for plugin, bag := range item.local {
		if bag.Len() == 0 {
			continue
		}
		dict, err := bag.ToDict()
		if err != nil {
			return ItemDocument{}, fmt.Errorf("item %q plugin %q: %w", item.name, plugin, err)
		}
		local[plugin] = dict
	}

	doc := ItemDocument{
		Active:              item.active,
		AllowsContextChange: item.allowsContextChange,
		Children:            make([]ItemDocument, 0, len(item.children)),
		Context:             item.context,
		Description:         item.description,
		Enabled:             item.enabled,
		Expanded:            item.expanded,
		GlobalProperties:    global,
		IconPath:            item.iconPath,
		LocalProperties:     local,
		Name:                item.name,
		Persistent:          item.persistent,
		Tasks:               make([]TaskDocument, 0, len(item.tasks)),
		ThumbnailEnabled:    item.thumbnailEnabled,
		ThumbnailExplicit:   item.thumbnailExplicit,
		ThumbnailPath:       item.thumbnailPath,
		TypeDisplay:         item.typeDisplay,
		TypeSpec:            item.typeSpec,
	}
	for _, task := range item.tasks {
		doc.Tasks = append(doc.Tasks, taskToDict(task))
	}
	for _, child := range item.children {
		childDoc, err := itemToDict(child)
		if err != nil {
			return ItemDocument{}, err
		}
		doc.Children = append(doc.Children, childDoc)
	}
	return doc, nil
}

func taskToDict(task *Task) TaskDocument {
	settings := make(map[string]SettingDocument, task.settings.Len())
	for _, s := range task.settings.All() {
		settings[s.Name] = SettingDocument{
			Type:         s.Type,
			DefaultValue: s.Default,
			Description:  s.Description,
			Value:        s.Value,
		}
	}
	return TaskDocument{
		PluginName:     task.plugin.Name(),
		PluginPath:     task.plugin.Path(),
		PluginSettings: task.plugin.Configured(),
		Name:           task.name,
		Description:    task.description,
		Settings:       settings,
		Active:         task.active,
		Visible:        task.visible,
		Enabled:        task.enabled,
		Required:       task.required,
	}
}

func itemFromDict(doc ItemDocument, resolver Resolver) (*Item, error) {
	item := newItem(doc.TypeSpec, doc.TypeDisplay, doc.Name)
	item.active = doc.Active
	item.allowsContextChange = doc.AllowsContextChange
	item.context = doc.Context
	item.description = doc.Description
	item.enabled = doc.Enabled
	item.expanded = doc.Expanded
	item.global = properties.FromDict(doc.GlobalProperties)
	item.iconPath = doc.IconPath
	item.persistent = doc.Persistent
	item.thumbnailEnabled = doc.ThumbnailEnabled
	item.thumbnailExplicit = doc.ThumbnailExplicit
	item.thumbnailPath = doc.ThumbnailPath
	for plugin, dict := range doc.LocalProperties {
		item.local[plugin] = properties.FromDict(dict)
	}

	for _, taskDoc := range doc.Tasks {
		task, err := taskFromDict(taskDoc, item, resolver)
		if err != nil {
			return nil, err
		}
		item.tasks = append(item.tasks, task)
	}
	for _, childDoc := range doc.Children {
		child, err := itemFromDict(childDoc, resolver)
		if err != nil {
			return nil, err
		}
		child.parent = item
		item.children = append(item.children, child)
	}
	return item, nil
}

func taskFromDict(doc TaskDocument, item *Item, resolver Resolver) (*Task, error) {
	if resolver == nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "tree", "load",
			fmt.Sprintf("no plugin resolver for task %q", doc.PluginName), nil)
	}
	plugin, err := resolver.ResolvePlugin(doc.PluginName, doc.PluginPath, doc.PluginSettings)
	if err != nil {
		return nil, fmt.Errorf("resolve plugin %q for item %q: %w", doc.PluginName, item.name, err)
	}
	task := newTask(plugin, item)
	task.name = doc.Name
	task.description = doc.Description
	task.active = doc.Active
	task.visible = doc.Visible
	task.enabled = doc.Enabled
	task.required = doc.Required
	for name, setting := range doc.Settings {
		if err := task.settings.Set(name, setting.Value); err != nil {
			if errors.Is(err, faults.ErrNotFound) {
				// The hook no longer declares this setting.
				continue
			}
			return nil, fmt.Errorf("task %q: %w", task.Name(), err)
		}
	}
	return task, nil
}
