package builtin

import (
	"fmt"
	"strings"

	"publisher/internal/faults"
	"publisher/internal/properties"
	"publisher/internal/session"
)

func stringProp(v properties.View, key string) string {
	raw, ok := v.Lookup(key)
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return strings.TrimSpace(s)
}

func intValue(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), n == float64(int64(n))
	default:
		return 0, false
	}
}

func requirePath(v properties.View, hook string) (string, error) {
	path := stringProp(v, "path")
	if path == "" {
		return "", faults.Wrap(faults.ErrValidation, hook, "read item", "item has no path property", nil)
	}
	return path, nil
}

func entityName(e *session.Entity) string {
	if e == nil {
		return ""
	}
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("%s_%d", e.Type, e.ID)
}

func entityID(e *session.Entity) int64 {
	if e == nil {
		return 0
	}
	return e.ID
}

func entityType(e *session.Entity) string {
	if e == nil {
		return ""
	}
	return e.Type
}

func sequenceFrames(v properties.View) []string {
	raw, ok := v.Lookup("sequence_paths")
	if !ok {
		return nil
	}
	list, _ := raw.([]any)
	frames := make([]string, 0, len(list))
	for _, entry := range list {
		if s, ok := entry.(string); ok && s != "" {
			frames = append(frames, s)
		}
	}
	return frames
}
