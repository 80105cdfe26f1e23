package properties

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"time"
)

const (
	customTypeKey  = "_custom_type"
	customValueKey = "value"
	datetimeType   = "datetime"
)

// encodeValue converts value into JSON-ready data. Maps with string keys are
// emitted with sorted keys so documents are stable across runs.
func encodeValue(key string, value any) (any, error) {
	switch v := value.(type) {
	case nil, bool, string:
		return v, nil
	case json.Number:
		return v, nil
	case time.Time:
		return map[string]any{customTypeKey: datetimeType, customValueKey: v.Format(time.RFC3339Nano)}, nil
	case *Bag:
		dict, err := v.ToDict()
		if err != nil {
			return nil, err
		}
		return dict, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value, nil
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &SerializationError{Key: key, Value: value}
		}
		return value, nil
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			encoded, err := encodeValue(key, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = encoded
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &SerializationError{Key: key, Value: value}
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			encoded, err := encodeValue(key, iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = encoded
		}
		return out, nil
	default:
		return nil, &SerializationError{Key: key, Value: value}
	}
}

// decodeValue restores custom types inside freshly decoded JSON data.
func decodeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v[customTypeKey] == datetimeType {
			if raw, ok := v[customValueKey].(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
					return ts
				}
			}
		}
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = decodeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = decodeValue(item)
		}
		return out
	case *Dict:
		return FromDict(v)
	default:
		return v
	}
}

// normalize maps equivalent representations onto one form: every number
// becomes float64, every sequence []any, every mapping map[string]any.
func normalize(value any) any {
	switch v := value.(type) {
	case nil, bool, string, time.Time:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String()
		}
		return f
	case *Bag:
		return v.Plain()
	case *Dict:
		return FromDict(v).Plain()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	default:
		return value
	}
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case *Bag:
		return v.Clone()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
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

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
