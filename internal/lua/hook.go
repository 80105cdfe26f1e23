package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"publisher/internal/faults"
	"publisher/internal/plugin"
	"publisher/internal/schema"
	"publisher/internal/tree"
)

// Hook is a loaded script. It implements every hook contract in package
// plugin and reports through Has which members the script defines.
type Hook struct {
	path   string
	state  *State
	module *lua.LTable
}

var (
	_ plugin.Capabilities               = (*Hook)(nil)
	_ plugin.Accepter                   = (*Hook)(nil)
	_ plugin.Validator                  = (*Hook)(nil)
	_ plugin.Publisher                  = (*Hook)(nil)
	_ plugin.Finalizer                  = (*Hook)(nil)
	_ plugin.ItemsSettingsWidgetCreator = (*Hook)(nil)
	_ plugin.ItemsUISettingsGetter      = (*Hook)(nil)
	_ plugin.ItemsUISettingsSetter      = (*Hook)(nil)
	_ plugin.SessionProcessor           = (*Hook)(nil)
	_ plugin.FileArgsProcessor          = (*Hook)(nil)
	_ plugin.PostValidator              = (*Hook)(nil)
	_ plugin.PostPublisher              = (*Hook)(nil)
	_ plugin.PostFinalizer              = (*Hook)(nil)
)

// LoadFile reads and runs the script at path. The script must return a table.
func LoadFile(ctx context.Context, path string, env Env, opts ...StateOption) (*Hook, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "lua", "load", path, err)
	}
	return Load(ctx, path, string(source), env, opts...)
}

// Load runs source as the script named path.
func Load(ctx context.Context, path, source string, env Env, opts ...StateOption) (*Hook, error) {
	state := NewState(opts...)
	registerBridge(state.L)
	installModules(state, env)

	results, err := state.DoString(ctx, source, "@"+filepath.Base(path))
	if err != nil {
		state.Close()
		return nil, faults.Wrap(faults.ErrConfiguration, "lua", "load", path, err)
	}
	if len(results) == 0 {
		state.Close()
		return nil, faults.Wrap(faults.ErrConfiguration, "lua", "load", path+": script must return a table", nil)
	}
	module, ok := results[0].(*lua.LTable)
	if !ok {
		state.Close()
		return nil, faults.Wrap(faults.ErrConfiguration, "lua", "load",
			fmt.Sprintf("%s: script returned %s, want table", path, results[0].Type()), nil)
	}
	return &Hook{path: path, state: state, module: module}, nil
}

// Close releases the script's state.
func (h *Hook) Close() { h.state.Close() }

func (h *Hook) Path() string { return h.path }

func (h *Hook) member(name string) lua.LValue {
	return h.module.RawGetString(name)
}

// Has reports whether the script defines member.
func (h *Hook) Has(member string) bool {
	return h.member(member) != lua.LNil
}

// metadata reads a string member that may also be a function returning one.
func (h *Hook) metadata(name string) string {
	value := h.member(name)
	if fn, ok := value.(*lua.LFunction); ok {
		results, err := h.state.Call(context.Background(), fn)
		if err != nil || len(results) == 0 {
			return ""
		}
		value = results[0]
	}
	if s, ok := value.(lua.LString); ok {
		return string(s)
	}
	return ""
}

func (h *Hook) Name() string        { return h.metadata(plugin.MemberName) }
func (h *Hook) Description() string { return h.metadata(plugin.MemberDescription) }
func (h *Hook) Icon() string        { return h.metadata(plugin.MemberIcon) }

func (h *Hook) ItemFilters() []string {
	list, ok := h.member(plugin.MemberItemFilters).(*lua.LTable)
	if !ok {
		return nil
	}
	filters := []string{}
	list.ForEach(func(_, v lua.LValue) {
		if s, ok := v.(lua.LString); ok {
			filters = append(filters, string(s))
		}
	})
	return filters
}

func (h *Hook) SettingsSchema() (map[string]schema.Definition, error) {
	value := h.member(plugin.MemberSettings)
	if value == lua.LNil {
		return map[string]schema.Definition{}, nil
	}
	table, ok := value.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("settings must be a table, got %s", value.Type())
	}
	converted, err := ToGoValue(table)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	raw, ok := converted.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("settings must map names to definitions")
	}
	return schema.ParseDefinitions(raw)
}

func (h *Hook) call(ctx context.Context, member string, args ...lua.LValue) ([]lua.LValue, error) {
	results, err := h.state.Call(ctx, h.member(member), args...)
	if err != nil {
		return nil, faults.Wrap(faults.ErrHook, h.path, member, "", err)
	}
	return results, nil
}

// wantsExtra reports whether the member's function declares more than base
// parameters, or is variadic.
func (h *Hook) wantsExtra(member string, base int) bool {
	fn, ok := h.member(member).(*lua.LFunction)
	if !ok || fn.Proto == nil {
		return false
	}
	return int(fn.Proto.NumParameters) > base || fn.Proto.IsVarArg&lua.VarArgIsVarArg != 0
}

func (h *Hook) settingsTable(settings schema.Settings) lua.LValue {
	L := h.state.L
	table := L.NewTable()
	for _, s := range settings.All() {
		entry := L.NewTable()
		entry.RawSetString("value", ToLuaValue(L, s.Value))
		entry.RawSetString("type", lua.LString(s.Type))
		entry.RawSetString("default", ToLuaValue(L, s.Default))
		entry.RawSetString("description", lua.LString(s.Description))
		table.RawSetString(s.Name, entry)
	}
	return table
}

func (h *Hook) pluginArgs(ctx context.Context, settings schema.Settings, item *tree.Item) []lua.LValue {
	name, _ := tree.PluginFromContext(ctx)
	return []lua.LValue{h.settingsTable(settings), pushItem(h.state.L, item, name)}
}

func first(results []lua.LValue) lua.LValue {
	if len(results) == 0 {
		return lua.LNil
	}
	return results[0]
}

func (h *Hook) Accept(ctx context.Context, settings schema.Settings, item *tree.Item) (plugin.Acceptance, error) {
	results, err := h.call(ctx, plugin.MemberAccept, h.pluginArgs(ctx, settings, item)...)
	if err != nil {
		return plugin.Reject(), err
	}
	switch v := first(results).(type) {
	case *lua.LTable:
		m, err := toStringMap(v)
		if err != nil {
			return plugin.Reject(), fmt.Errorf("%s result: %w", plugin.MemberAccept, err)
		}
		return plugin.AcceptanceFromMap(m), nil
	case lua.LBool:
		if v {
			return plugin.Accept(), nil
		}
	}
	return plugin.Reject(), nil
}

func (h *Hook) Validate(ctx context.Context, settings schema.Settings, item *tree.Item) (bool, error) {
	results, err := h.call(ctx, plugin.MemberValidate, h.pluginArgs(ctx, settings, item)...)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(first(results)), nil
}

func (h *Hook) Publish(ctx context.Context, settings schema.Settings, item *tree.Item) error {
	_, err := h.call(ctx, plugin.MemberPublish, h.pluginArgs(ctx, settings, item)...)
	return err
}

func (h *Hook) Finalize(ctx context.Context, settings schema.Settings, item *tree.Item) error {
	_, err := h.call(ctx, plugin.MemberFinalize, h.pluginArgs(ctx, settings, item)...)
	return err
}

// CreateSettingsWidget passes items only to scripts whose function takes them.
func (h *Hook) CreateSettingsWidget(parent any, items []*tree.Item) (any, error) {
	args := []lua.LValue{ToLuaValue(h.state.L, parent)}
	if h.wantsExtra(plugin.MemberCreateSettingsWidget, 1) {
		args = append(args, itemsTable(h.state.L, items))
	}
	results, err := h.call(context.Background(), plugin.MemberCreateSettingsWidget, args...)
	if err != nil {
		return nil, err
	}
	return first(results), nil
}

func (h *Hook) GetUISettings(widget any, items []*tree.Item) (map[string]any, error) {
	args := []lua.LValue{ToLuaValue(h.state.L, widget)}
	if h.wantsExtra(plugin.MemberGetUISettings, 1) {
		args = append(args, itemsTable(h.state.L, items))
	}
	results, err := h.call(context.Background(), plugin.MemberGetUISettings, args...)
	if err != nil {
		return nil, err
	}
	return toStringMap(first(results))
}

func (h *Hook) SetUISettings(widget any, settings []map[string]any, items []*tree.Item) error {
	L := h.state.L
	list := L.NewTable()
	for i, s := range settings {
		list.RawSetInt(i+1, ToLuaValue(L, s))
	}
	args := []lua.LValue{ToLuaValue(L, widget), list}
	if h.wantsExtra(plugin.MemberSetUISettings, 2) {
		args = append(args, itemsTable(L, items))
	}
	_, err := h.call(context.Background(), plugin.MemberSetUISettings, args...)
	return err
}

func (h *Hook) ProcessCurrentSession(ctx context.Context, settings schema.Settings, parent *tree.Item) error {
	_, err := h.call(ctx, plugin.MemberProcessCurrentSession,
		h.settingsTable(settings), pushItem(h.state.L, parent, ""))
	return err
}

// ProcessFile passes args only to scripts whose function takes a fourth
// parameter.
func (h *Hook) ProcessFile(ctx context.Context, settings schema.Settings, parent *tree.Item, path string, args map[string]any) error {
	L := h.state.L
	callArgs := []lua.LValue{h.settingsTable(settings), pushItem(L, parent, ""), lua.LString(path)}
	if h.wantsExtra(plugin.MemberProcessFile, 3) {
		callArgs = append(callArgs, ToLuaValue(L, args))
	}
	_, err := h.call(ctx, plugin.MemberProcessFile, callArgs...)
	return err
}

// PostValidate maps the script's answer onto a verdict: false vetoes, true
// approves, nothing abstains.
func (h *Hook) PostValidate(ctx context.Context, t *tree.Tree, failed []plugin.ItemFailures) (plugin.Verdict, error) {
	L := h.state.L
	results, err := h.call(ctx, plugin.MemberPostValidate, treeTable(L, t, ""), failuresTable(L, failed))
	if err != nil {
		return plugin.Abstain, err
	}
	switch v := first(results).(type) {
	case lua.LBool:
		if v {
			return plugin.Approve, nil
		}
		return plugin.Veto, nil
	default:
		return plugin.Abstain, nil
	}
}

func (h *Hook) PostPublish(ctx context.Context, t *tree.Tree) error {
	_, err := h.call(ctx, plugin.MemberPostPublish, treeTable(h.state.L, t, ""))
	return err
}

func (h *Hook) PostFinalize(ctx context.Context, t *tree.Tree) error {
	_, err := h.call(ctx, plugin.MemberPostFinalize, treeTable(h.state.L, t, ""))
	return err
}
