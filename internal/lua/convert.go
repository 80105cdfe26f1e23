package lua

import (
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"publisher/internal/properties"
)

// ToLuaValue converts a Go value into a Lua value. Values that already are
// Lua values pass through.
func ToLuaValue(L *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return v
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int32:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case time.Time:
		return lua.LString(v.Format(time.RFC3339Nano))
	case []string:
		table := L.NewTable()
		for i, s := range v {
			table.RawSetInt(i+1, lua.LString(s))
		}
		return table
	case []any:
		table := L.NewTable()
		for i, item := range v {
			table.RawSetInt(i+1, ToLuaValue(L, item))
		}
		return table
	case map[string]any:
		table := L.NewTable()
		for key, item := range v {
			table.RawSetString(key, ToLuaValue(L, item))
		}
		return table
	case *properties.Bag:
		table := L.NewTable()
		for key, item := range v.All() {
			table.RawSetString(key, ToLuaValue(L, item))
		}
		return table
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}

// ErrCyclicTable is returned when a table contains itself, directly or
// through nested tables.
var ErrCyclicTable = errors.New("table refers to itself")

// ToGoValue converts a Lua value into plain Go data. Tables with a sequence
// part become []any; other tables become map[string]any with non-string
// keys formatted as strings. A table shared by two fields converts twice; a
// table reachable from itself fails with ErrCyclicTable.
func ToGoValue(lv lua.LValue) (any, error) {
	return toGo(lv, map[*lua.LTable]struct{}{})
}

func toGo(lv lua.LValue, open map[*lua.LTable]struct{}) (any, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		if _, seen := open[v]; seen {
			return nil, ErrCyclicTable
		}
		open[v] = struct{}{}
		defer delete(open, v)

		if n := v.MaxN(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				item, err := toGo(v.RawGetInt(i), open)
				if err != nil {
					return nil, err
				}
				out = append(out, item)
			}
			return out, nil
		}
		out := map[string]any{}
		var err error
		v.ForEach(func(key, value lua.LValue) {
			if err != nil {
				return
			}
			var item any
			if item, err = toGo(value, open); err == nil {
				out[key.String()] = item
			}
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case *lua.LUserData:
		if b, ok := v.Value.(*bagHandle); ok {
			out := make(map[string]any, b.view.Len())
			for _, key := range b.view.Keys() {
				out[key], _ = b.view.Lookup(key)
			}
			return out, nil
		}
		return v.Value, nil
	default:
		return v.String(), nil
	}
}

// toStringMap converts a Lua table into map[string]any; anything that is not
// a keyed table yields an empty map.
func toStringMap(lv lua.LValue) (map[string]any, error) {
	value, err := ToGoValue(lv)
	if err != nil {
		return nil, err
	}
	if m, ok := value.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{}, nil
}
