// Package schema resolves plugin settings against the schema a hook declares.
package schema

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"publisher/internal/faults"
)

// Setting types a schema may declare.
const (
	TypeString = "str"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeList   = "list"
	TypeDict   = "dict"
	TypeAny    = "any"
)

var typeAliases = map[string]string{
	"str":      TypeString,
	"string":   TypeString,
	"template": TypeString,
	"int":      TypeInt,
	"integer":  TypeInt,
	"float":    TypeFloat,
	"number":   TypeFloat,
	"bool":     TypeBool,
	"boolean":  TypeBool,
	"list":     TypeList,
	"dict":     TypeDict,
	"any":      TypeAny,
}

// Definition is one entry of a hook's settings schema.
type Definition struct {
	Type        string
	Default     any
	Description string
}

// Setting is a resolved setting: its schema entry plus the value in effect.
type Setting struct {
	Name        string
	Type        string
	Default     any
	Description string
	Value       any
}

// Settings is an ordered, name-addressable set of resolved settings.
type Settings struct {
	items []*Setting
}

// Resolve binds configured values to a schema. A configured value wins over
// the schema default; configured keys the schema does not declare are
// ignored. A malformed schema or a value of the wrong type is a configuration
// error.
func Resolve(defs map[string]Definition, configured map[string]any) (Settings, error) {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := Settings{items: make([]*Setting, 0, len(names))}
	for _, name := range names {
		def := defs[name]
		canonical, ok := typeAliases[strings.ToLower(strings.TrimSpace(def.Type))]
		if !ok {
			return Settings{}, faults.Wrap(faults.ErrConfiguration, "settings", name,
				fmt.Sprintf("unknown setting type %q", def.Type), nil)
		}
		value := def.Default
		if v, present := configured[name]; present {
			value = v
		}
		coerced, err := coerce(canonical, value)
		if err != nil {
			return Settings{}, faults.Wrap(faults.ErrConfiguration, "settings", name, "invalid value", err)
		}
		out.items = append(out.items, &Setting{
			Name:        name,
			Type:        canonical,
			Default:     def.Default,
			Description: def.Description,
			Value:       coerced,
		})
	}
	return out, nil
}

// ParseDefinitions converts a loosely typed schema (as declared by a script
// hook) into definitions. Each entry must be a mapping with a "type" key.
func ParseDefinitions(raw map[string]any) (map[string]Definition, error) {
	defs := make(map[string]Definition, len(raw))
	for name, entry := range raw {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, faults.Wrap(faults.ErrConfiguration, "settings", name,
				fmt.Sprintf("schema entry must be a table, got %T", entry), nil)
		}
		typ, ok := fields["type"].(string)
		if !ok || strings.TrimSpace(typ) == "" {
			return nil, faults.Wrap(faults.ErrConfiguration, "settings", name, "schema entry is missing a type", nil)
		}
		desc, _ := fields["description"].(string)
		defs[name] = Definition{Type: typ, Default: fields["default"], Description: desc}
	}
	return defs, nil
}

func (s Settings) Len() int { return len(s.items) }

// All returns the settings in name order.
func (s Settings) All() []*Setting { return s.items }

func (s Settings) Lookup(name string) (*Setting, bool) {
	for _, item := range s.items {
		if item.Name == name {
			return item, true
		}
	}
	return nil, false
}

// Value returns the value in effect for name, or nil if the schema lacks it.
func (s Settings) Value(name string) any {
	if item, ok := s.Lookup(name); ok {
		return item.Value
	}
	return nil
}

// String returns the named value as a string, or fallback.
func (s Settings) String(name, fallback string) string {
	if v, ok := s.Value(name).(string); ok && v != "" {
		return v
	}
	return fallback
}

// Bool returns the named value as a bool, or fallback.
func (s Settings) Bool(name string, fallback bool) bool {
	if v, ok := s.Value(name).(bool); ok {
		return v
	}
	return fallback
}

// Values returns a plain name to value map, the form hooks receive.
func (s Settings) Values() map[string]any {
	out := make(map[string]any, len(s.items))
	for _, item := range s.items {
		out[item.Name] = item.Value
	}
	return out
}

// Clone deep-copies the settings so a task can edit its values in isolation.
func (s Settings) Clone() Settings {
	out := Settings{items: make([]*Setting, len(s.items))}
	for i, item := range s.items {
		cp := *item
		cp.Value = cloneValue(item.Value)
		out.items[i] = &cp
	}
	return out
}

// Set replaces the value of an existing setting.
func (s Settings) Set(name string, value any) error {
	item, ok := s.Lookup(name)
	if !ok {
		return faults.Wrap(faults.ErrNotFound, "settings", name, "no such setting", nil)
	}
	coerced, err := coerce(item.Type, value)
	if err != nil {
		return faults.Wrap(faults.ErrValidation, "settings", name, "invalid value", err)
	}
	item.Value = coerced
	return nil
}

// FromSettings rebuilds a Settings value from already resolved entries.
func FromSettings(items []*Setting) Settings {
	out := Settings{items: append([]*Setting(nil), items...)}
	sort.Slice(out.items, func(i, j int) bool { return out.items[i].Name < out.items[j].Name })
	return out
}

func coerce(typ string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(value)
	switch typ {
	case TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case TypeBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case TypeInt:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			if f := rv.Float(); f == math.Trunc(f) {
				return int64(f), nil
			}
		}
	case TypeFloat:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		}
	case TypeList:
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			out := make([]any, rv.Len())
			for i := range rv.Len() {
				out[i] = rv.Index(i).Interface()
			}
			return out, nil
		}
	case TypeDict:
		if m, ok := value.(map[string]any); ok {
			return m, nil
		}
	case TypeAny:
		return value, nil
	}
	return nil, fmt.Errorf("expected %s, got %T", typ, value)
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
