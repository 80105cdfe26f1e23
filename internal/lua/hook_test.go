package lua_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"

	"publisher/internal/faults"
	"publisher/internal/logging"
	"publisher/internal/lua"
	"publisher/internal/plugin"
	"publisher/internal/schema"
	"publisher/internal/session"
	"publisher/internal/tracking"
	"publisher/internal/tree"
)

const publishScript = `
local json = require("json")
local log = require("log")
local properties = require("properties")

local hook = {}
hook.name = "Lua Publisher"
hook.description = function() return "publishes from lua" end
hook.item_filters = {"file.*"}
hook.settings = {
  ["Publish Template"] = {type = "str", default = "{name}.v{version}", description = "template"},
  ["Frames"] = {type = "int", default = 10},
}

function hook.accept(settings, item)
  return {accepted = item.name ~= "skip", checked = false}
end

function hook.validate(settings, item)
  item.local_properties.checked_by = "lua"
  item.properties["validated"] = settings["Frames"].value
  log.info("validated", {item = item.name})
  return item.properties.validated == 10
end

function hook.publish(settings, item)
  if item.name == "broken" then
    error("publish refused")
  end
  item.properties.payload = json.decode(json.encode({frames = {1, 2}}))
end

function hook.finalize(settings, item)
  item.properties.ghost = nil
end

return hook
`

func load(t *testing.T, source string, env lua.Env) *lua.Hook {
	t.Helper()
	hook, err := lua.Load(context.Background(), "test.lua", source, env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(hook.Close)
	return hook
}

func newItem(name string) *tree.Item {
	return tree.New(session.Context{}).Root().CreateItem("file.image", "Image", name)
}

func TestScriptMetadataAndSettings(t *testing.T) {
	hook := load(t, publishScript, lua.Env{})
	p, err := plugin.NewPublishInstance("lua", "test.lua", hook, map[string]any{"Frames": 10}, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	if p.DisplayName() != "Lua Publisher" || p.Description() != "publishes from lua" {
		t.Fatalf("metadata = %q, %q", p.DisplayName(), p.Description())
	}
	if p.Icon() != plugin.DefaultIcon {
		t.Fatalf("icon should fall back, got %q", p.Icon())
	}
	if got := p.ItemFilters(); len(got) != 1 || got[0] != "file.*" {
		t.Fatalf("filters = %v", got)
	}
	if got := p.Settings().String("Publish Template", ""); got != "{name}.v{version}" {
		t.Fatalf("template = %q", got)
	}
	if hook.Has(plugin.MemberCreateSettingsWidget) {
		t.Fatal("script does not define create_settings_widget")
	}
}

func TestScriptLifecycle(t *testing.T) {
	hook := load(t, publishScript, lua.Env{})
	p, err := plugin.NewPublishInstance("lua", "test.lua", hook, nil, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	ctx := context.Background()
	item := newItem("plate")

	acc := p.RunAccept(ctx, item)
	if !acc.Accepted || acc.Checked() || !acc.Required() {
		t.Fatalf("acceptance = %+v", acc)
	}
	if p.RunAccept(ctx, newItem("skip")).Accepted {
		t.Fatal("expected rejection")
	}

	task, err := item.AddTask(p)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	ok, err := task.Validate(ctx)
	if err != nil || !ok {
		t.Fatalf("Validate = %v, %v", ok, err)
	}
	if v, _ := task.Properties().Lookup("checked_by"); v != "lua" {
		t.Fatalf("local property = %#v", v)
	}
	if item.Properties().Has("checked_by") {
		t.Fatal("local write leaked into global properties")
	}

	if err := task.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	payload, _ := item.Properties().Lookup("payload")
	frames := payload.(map[string]any)["frames"].([]any)
	if len(frames) != 2 {
		t.Fatalf("payload = %#v", payload)
	}

	err = task.Finalize(ctx)
	if !errors.Is(err, faults.ErrHook) || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("deleting a missing property should fail, got %v", err)
	}

	broken := newItem("broken")
	brokenTask, err := broken.AddTask(p)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := brokenTask.Publish(ctx); err == nil || !strings.Contains(err.Error(), "publish refused") {
		t.Fatalf("expected script error, got %v", err)
	}
}

func TestPropertyFieldAndSubscriptAgree(t *testing.T) {
	hook := load(t, `
local properties = require("properties")
return {
  validate = function(settings, item)
    local p = item.properties
    p.alpha = 1
    p["beta"] = "two"
    local keys = properties.keys(p)
    return p["alpha"] == p.alpha and p.beta == "two" and #p == 2 and keys[1] == "alpha"
      and properties.has(p, "beta") and not properties.has(p, "gamma")
  end,
}`, lua.Env{})
	ok, err := hook.Validate(context.Background(), schema.Settings{}, newItem("x"))
	if err != nil || !ok {
		t.Fatalf("Validate = %v, %v", ok, err)
	}
}

func TestSandboxRemovesUnsafeLibraries(t *testing.T) {
	hook := load(t, `
return {
  validate = function()
    return os == nil and io == nil and debug == nil and loadstring == nil and dofile == nil
  end,
}`, lua.Env{})
	ok, err := hook.Validate(context.Background(), schema.Settings{}, newItem("x"))
	if err != nil || !ok {
		t.Fatalf("sandbox leaked unsafe globals: %v, %v", ok, err)
	}
}

func TestLoadRejectsBadScripts(t *testing.T) {
	for name, source := range map[string]string{
		"syntax":    "return {",
		"no table":  "return 42",
		"no return": "local x = 1",
	} {
		if _, err := lua.Load(context.Background(), name+".lua", source, lua.Env{}); !errors.Is(err, faults.ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", name, err)
		}
	}
	if _, err := lua.LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.lua"), lua.Env{}); !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing file, got %v", err)
	}
}

func TestCollectorArity(t *testing.T) {
	hook := load(t, `
return {
  process_file = function(settings, parent, path, args)
    local item = parent:create_item("file", "File", path)
    item.properties.frame = args.frame
  end,
}`, lua.Env{})
	tr := tree.New(session.Context{})
	if err := hook.ProcessFile(context.Background(), schema.Settings{}, tr.Root(), "/a.exr", map[string]any{"frame": 12}); err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	items := tr.Items()
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	if v, _ := items[0].Properties().Lookup("frame"); v != float64(12) {
		t.Fatalf("frame = %#v", v)
	}

	short := load(t, `
return {
  process_file = function(settings, parent, path, ...)
    assert(select("#", ...) == 1, "variadic hooks receive args")
    parent:create_item("file", "File", path)
  end,
}`, lua.Env{})
	if err := short.ProcessFile(context.Background(), schema.Settings{}, tr.Root(), "/b.exr", nil); err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
}

func TestCustomUIArity(t *testing.T) {
	hook := load(t, `
return {
  create_settings_widget = function(parent) return parent .. ":widget" end,
  get_ui_settings = function(widget, items) return {count = #items} end,
  set_ui_settings = function(widget, settings) assert(#settings == 2) end,
}`, lua.Env{})
	p, err := plugin.NewPublishInstance("ui", "ui.lua", hook, nil, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	items := []*tree.Item{newItem("a"), newItem("b")}
	widget, err := p.CreateSettingsWidget("panel", items)
	if err != nil {
		t.Fatalf("CreateSettingsWidget: %v", err)
	}
	got, err := p.GetUISettings(widget, items)
	if err != nil || got["count"] != float64(2) {
		t.Fatalf("GetUISettings = %v, %v", got, err)
	}
	if err := p.SetUISettings(widget, []map[string]any{{}, {}}, items); err != nil {
		t.Fatalf("SetUISettings: %v", err)
	}
}

func TestPostValidateVerdicts(t *testing.T) {
	hook := load(t, `
return {
  post_validate = function(tree, failed)
    if #failed > 0 then return nil end
    return #tree.items ~= 1
  end,
}`, lua.Env{})
	tr := tree.New(session.Context{})
	tr.Root().CreateItem("file", "File", "a")
	verdict, err := hook.PostValidate(context.Background(), tr, nil)
	if err != nil || verdict != plugin.Veto {
		t.Fatalf("verdict = %v, %v; want veto", verdict, err)
	}
	tr.Root().CreateItem("file", "File", "b")
	if verdict, _ := hook.PostValidate(context.Background(), tr, nil); verdict != plugin.Approve {
		t.Fatalf("verdict = %v; want approve", verdict)
	}
}

func TestTrackingAndFSModules(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plate.exr")
	if err := os.WriteFile(src, []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := tracking.OpenPath(filepath.Join(dir, "tracking.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hook := load(t, `
local fs = require("fs")
local tracking = require("tracking")
return {
  publish = function(settings, item)
    local path = item.properties.path
    assert(fs.exists(path) and fs.ext(path) == "exr" and fs.size(path) == 6)
    local id, version = tracking.register_publish({project = "demo", name = fs.basename(path), path = path})
    local vid = tracking.create_version({project = "demo", code = "plate", published_file_id = id})
    tracking.upload("version", vid, "image", path)
    item.properties.published_id = id
    item.properties.version = version
  end,
}`, lua.Env{Tracking: store})

	item := newItem("plate")
	item.Properties().Set("path", src)
	if err := hook.Publish(context.Background(), schema.Settings{}, item); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if v, _ := item.Properties().Lookup("version"); v != float64(1) {
		t.Fatalf("version = %#v", v)
	}
	files, err := store.PublishedFiles(context.Background(), "demo", 0)
	if err != nil || len(files) != 1 || files[0].Name != "plate.exr" {
		t.Fatalf("published files = %#v, %v", files, err)
	}

	unconfigured := load(t, `
local tracking = require("tracking")
return { publish = function() tracking.next_version("demo", "x") end }`, lua.Env{})
	if err := unconfigured.Publish(context.Background(), schema.Settings{}, item); err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("expected tracking error, got %v", err)
	}
}

func TestSelfReferencingTablesAreContained(t *testing.T) {
	hook := load(t, `
local function loop()
  local t = {accepted = true}
  t.self = t
  return t
end
return {
  item_filters = {"file.*"},
  accept = function(settings, item) return loop() end,
  validate = function(settings, item)
    item.properties.graph = loop()
    return true
  end,
  publish = function(settings, item)
    local shared = {1, 2}
    item.properties.pair = {a = shared, b = shared}
  end,
}`, lua.Env{})
	p, err := plugin.NewPublishInstance("lua", "test.lua", hook, nil, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	ctx := context.Background()
	item := newItem("plate")

	if p.RunAccept(ctx, item).Accepted {
		t.Fatal("expected a cyclic accept result to be rejected")
	}

	task, err := item.AddTask(p)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	ok, err := task.Validate(ctx)
	if ok || err == nil || !strings.Contains(err.Error(), lua.ErrCyclicTable.Error()) {
		t.Fatalf("Validate = %v, %v; want cyclic table error", ok, err)
	}
	if item.Properties().Has("graph") {
		t.Fatal("cyclic value should not be stored")
	}

	if err := task.Publish(ctx); err != nil {
		t.Fatalf("a table shared by two fields is not a cycle: %v", err)
	}
	pair, _ := item.Properties().Lookup("pair")
	if a := pair.(map[string]any)["a"].([]any); len(a) != 2 {
		t.Fatalf("pair = %#v", pair)
	}
}

func TestToGoValueRejectsCycles(t *testing.T) {
	s := lua.NewState()
	t.Cleanup(s.Close)
	results, err := s.DoString(context.Background(), `
local t = {}
t[1] = {t}
return t`, "cycle")
	if err != nil {
		t.Fatalf("DoString: %v", err)
	}
	if _, err := lua.ToGoValue(results[0]); !errors.Is(err, lua.ErrCyclicTable) {
		t.Fatalf("ToGoValue error = %v, want ErrCyclicTable", err)
	}
}

func TestStateCallsHaveNoDeadlineByDefault(t *testing.T) {
	hasDeadline := func(s *lua.State) bool {
		t.Helper()
		fn := s.L.NewFunction(func(L *glua.LState) int {
			_, ok := L.Context().Deadline()
			L.Push(glua.LBool(ok))
			return 1
		})
		results, err := s.Call(context.Background(), fn)
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		return glua.LVAsBool(results[0])
	}

	plain := lua.NewState()
	t.Cleanup(plain.Close)
	if hasDeadline(plain) {
		t.Fatal("default state should not impose a deadline")
	}

	bounded := lua.NewState(lua.WithCallTimeout(time.Minute))
	t.Cleanup(bounded.Close)
	if !hasDeadline(bounded) {
		t.Fatal("WithCallTimeout should set a deadline")
	}
}

func TestScriptLogReachesContextHandler(t *testing.T) {
	hook := load(t, publishScript, lua.Env{Logger: logging.NewNop()})
	p, err := plugin.NewPublishInstance("lua", "test.lua", hook, nil, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	item := newItem("plate")
	task, err := item.AddTask(p)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	var buf bytes.Buffer
	ctx := logging.WithTee(logging.WithRunID(context.Background(), "run-7"), slog.NewJSONHandler(&buf, nil))
	if ok, err := task.Validate(ctx); err != nil || !ok {
		t.Fatalf("Validate = %v, %v", ok, err)
	}
	for _, fragment := range []string{`"msg":"validated"`, `"item":"plate"`, `"run_id":"run-7"`} {
		if !strings.Contains(buf.String(), fragment) {
			t.Fatalf("expected %q in context log: %s", fragment, buf.String())
		}
	}
}
