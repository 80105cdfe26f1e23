package lua

import (
	lua "github.com/yuin/gopher-lua"

	"publisher/internal/plugin"
	"publisher/internal/properties"
	"publisher/internal/session"
	"publisher/internal/tree"
)

const (
	itemTypeName = "publisher.item"
	bagTypeName  = "publisher.properties"
)

type itemHandle struct {
	item   *tree.Item
	plugin string
}

type bagHandle struct {
	view properties.View
}

func registerBridge(L *lua.LState) {
	itemMeta := L.NewTypeMetatable(itemTypeName)
	L.SetField(itemMeta, "__index", L.NewFunction(itemIndex))
	L.SetField(itemMeta, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(checkItem(L, 1).item.String()))
		return 1
	}))

	bagMeta := L.NewTypeMetatable(bagTypeName)
	L.SetField(bagMeta, "__index", L.NewFunction(bagIndex))
	L.SetField(bagMeta, "__newindex", L.NewFunction(bagNewIndex))
	L.SetField(bagMeta, "__len", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(checkBag(L, 1).Len()))
		return 1
	}))
}

func pushItem(L *lua.LState, item *tree.Item, pluginName string) lua.LValue {
	if item == nil {
		return lua.LNil
	}
	ud := L.NewUserData()
	ud.Value = &itemHandle{item: item, plugin: pluginName}
	L.SetMetatable(ud, L.GetTypeMetatable(itemTypeName))
	return ud
}

func pushBag(L *lua.LState, view properties.View) lua.LValue {
	ud := L.NewUserData()
	ud.Value = &bagHandle{view: view}
	L.SetMetatable(ud, L.GetTypeMetatable(bagTypeName))
	return ud
}

func checkItem(L *lua.LState, n int) *itemHandle {
	ud := L.CheckUserData(n)
	if h, ok := ud.Value.(*itemHandle); ok {
		return h
	}
	L.ArgError(n, "item expected")
	return nil
}

func checkBag(L *lua.LState, n int) properties.View {
	ud := L.CheckUserData(n)
	if h, ok := ud.Value.(*bagHandle); ok {
		return h.view
	}
	L.ArgError(n, "properties expected")
	return nil
}

func itemIndex(L *lua.LState) int {
	h := checkItem(L, 1)
	key := L.CheckString(2)
	item := h.item
	var value lua.LValue
	switch key {
	case "name":
		value = lua.LString(item.Name())
	case "type":
		value = lua.LString(item.Type())
	case "type_display":
		value = lua.LString(item.TypeDisplay())
	case "description":
		value = lua.LString(item.Description())
	case "active":
		value = lua.LBool(item.Active())
	case "enabled":
		value = lua.LBool(item.Enabled())
	case "expanded":
		value = lua.LBool(item.Expanded())
	case "persistent":
		value = lua.LBool(item.Persistent())
	case "is_root":
		value = lua.LBool(item.IsRoot())
	case "icon":
		value = lua.LString(item.IconPath())
	case "thumbnail":
		value = lua.LString(item.GetThumbnailAsPath())
	case "properties":
		value = pushBag(L, item.Properties())
	case "local_properties":
		if h.plugin == "" {
			L.RaiseError("local_properties is only available while a plugin runs")
			return 0
		}
		value = pushBag(L, item.LocalPropertiesFor(h.plugin))
	case "context":
		value = contextTable(L, item.Context())
	case "parent":
		value = pushItem(L, item.Parent(), h.plugin)
	default:
		fn, ok := itemMethods[key]
		if !ok {
			value = lua.LNil
			break
		}
		value = L.NewFunction(fn)
	}
	L.Push(value)
	return 1
}

var itemMethods = map[string]lua.LGFunction{
	"create_item": func(L *lua.LState) int {
		h := checkItem(L, 1)
		child := h.item.CreateItem(L.CheckString(2), L.CheckString(3), L.CheckString(4))
		L.Push(pushItem(L, child, h.plugin))
		return 1
	},
	"children": func(L *lua.LState) int {
		h := checkItem(L, 1)
		table := L.NewTable()
		for i, child := range h.item.Children() {
			table.RawSetInt(i+1, pushItem(L, child, h.plugin))
		}
		L.Push(table)
		return 1
	},
	"remove": func(L *lua.LState) int {
		if err := checkItem(L, 1).item.Remove(); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	},
	"set_persistent": func(L *lua.LState) int {
		if err := checkItem(L, 1).item.SetPersistent(L.CheckBool(2)); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	},
	"set_name":              stringSetter((*tree.Item).SetName),
	"set_description":       stringSetter((*tree.Item).SetDescription),
	"set_type_display":      stringSetter((*tree.Item).SetTypeDisplay),
	"set_icon":              stringSetter((*tree.Item).SetIconFromPath),
	"set_thumbnail":         stringSetter((*tree.Item).SetThumbnailFromPath),
	"set_active":            boolSetter((*tree.Item).SetActive),
	"set_enabled":           boolSetter((*tree.Item).SetEnabled),
	"set_expanded":          boolSetter((*tree.Item).SetExpanded),
	"set_thumbnail_enabled": boolSetter((*tree.Item).SetThumbnailEnabled),
}

func stringSetter(set func(*tree.Item, string)) lua.LGFunction {
	return func(L *lua.LState) int {
		set(checkItem(L, 1).item, L.CheckString(2))
		return 0
	}
}

func boolSetter(set func(*tree.Item, bool)) lua.LGFunction {
	return func(L *lua.LState) int {
		set(checkItem(L, 1).item, L.CheckBool(2))
		return 0
	}
}

func contextTable(L *lua.LState, c session.Context) lua.LValue {
	table := L.NewTable()
	entity := func(field string, e *session.Entity) {
		if e == nil {
			return
		}
		t := L.NewTable()
		t.RawSetString("type", lua.LString(e.Type))
		t.RawSetString("id", lua.LNumber(e.ID))
		t.RawSetString("name", lua.LString(e.Name))
		table.RawSetString(field, t)
	}
	entity("project", c.Project)
	entity("entity", c.Entity)
	entity("step", c.Step)
	entity("task", c.Task)
	entity("user", c.User)
	entity("source_entity", c.SourceEntity)
	return table
}

func bagIndex(L *lua.LState) int {
	view := checkBag(L, 1)
	value, ok := view.Lookup(L.CheckString(2))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(ToLuaValue(L, value))
	return 1
}

// Assigning nil deletes, and deleting a missing key is an error like any
// other delete.
func bagNewIndex(L *lua.LState) int {
	view := checkBag(L, 1)
	key := L.CheckString(2)
	value := L.Get(3)
	if value == lua.LNil {
		if err := view.Delete(key); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	}
	converted, err := ToGoValue(value)
	if err != nil {
		L.RaiseError("property %q: %s", key, err.Error())
		return 0
	}
	view.Set(key, converted)
	return 0
}

func treeTable(L *lua.LState, t *tree.Tree, pluginName string) lua.LValue {
	table := L.NewTable()
	table.RawSetString("root", pushItem(L, t.Root(), pluginName))
	items := L.NewTable()
	for i, item := range t.Items() {
		items.RawSetInt(i+1, pushItem(L, item, pluginName))
	}
	table.RawSetString("items", items)
	return table
}

func failuresTable(L *lua.LState, failed []plugin.ItemFailures) lua.LValue {
	table := L.NewTable()
	for i, group := range failed {
		entry := L.NewTable()
		entry.RawSetString("item", pushItem(L, group.Item, ""))
		failures := L.NewTable()
		for j, f := range group.Failures {
			ft := L.NewTable()
			ft.RawSetString("task", lua.LString(f.Task.Name()))
			ft.RawSetString("plugin", lua.LString(f.Task.Plugin().Name()))
			if f.Err != nil {
				ft.RawSetString("error", lua.LString(f.Err.Error()))
			}
			failures.RawSetInt(j+1, ft)
		}
		entry.RawSetString("failures", failures)
		table.RawSetInt(i+1, entry)
	}
	return table
}

func itemsTable(L *lua.LState, items []*tree.Item) lua.LValue {
	table := L.NewTable()
	for i, item := range items {
		table.RawSetInt(i+1, pushItem(L, item, ""))
	}
	return table
}
