package plugin_test

import (
	"context"
	"errors"
	"testing"

	"publisher/internal/faults"
	"publisher/internal/plugin"
	"publisher/internal/schema"
	"publisher/internal/session"
	"publisher/internal/tree"
)

var errBoom = errors.New("boom")

type fullHook struct {
	accept    plugin.Acceptance
	acceptErr error
	panicOn   string
	valid     bool
	calls     []string
	sawPlugin string
}

func (h *fullHook) Name() string { return "Full Hook" }
func (h *fullHook) Description() string { return "does everything" }
func (h *fullHook) ItemFilters() []string { return []string{"file.*"} }

func (h *fullHook) SettingsSchema() (map[string]schema.Definition, error) {
	return map[string]schema.Definition{
		"Publish Template": {Type: "str", Default: "{name}.v{version}"},
		"Retries":          {Type: "int", Default: 2},
	}, nil
}

func (h *fullHook) Accept(ctx context.Context, _ schema.Settings, _ *tree.Item) (plugin.Acceptance, error) {
	if h.panicOn == plugin.MemberAccept {
		panic("accept exploded")
	}
	return h.accept, h.acceptErr
}

func (h *fullHook) Validate(ctx context.Context, _ schema.Settings, _ *tree.Item) (bool, error) {
	h.calls = append(h.calls, plugin.MemberValidate)
	h.sawPlugin, _ = tree.PluginFromContext(ctx)
	return h.valid, nil
}

func (h *fullHook) Publish(context.Context, schema.Settings, *tree.Item) error {
	h.calls = append(h.calls, plugin.MemberPublish)
	if h.panicOn == plugin.MemberPublish {
		panic("publish exploded")
	}
	return errBoom
}

type bareHook struct{}

// partialHook claims Validate as a method but reports it missing.
type partialHook struct{ fullHook }

func (partialHook) Has(member string) bool { return member != plugin.MemberValidate }

func newItem(t *testing.T) *tree.Item {
	t.Helper()
	tr := tree.New(session.Context{})
	return tr.Root().CreateItem("file.image", "Image", "plate.exr")
}

func TestPublishInstanceDefaults(t *testing.T) {
	p, err := plugin.NewPublishInstance("bare", "builtin:bare", bareHook{}, nil, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	if p.DisplayName() != plugin.DefaultName {
		t.Fatalf("display name = %q", p.DisplayName())
	}
	if p.Description() != plugin.DefaultDescription {
		t.Fatalf("description = %q", p.Description())
	}
	if p.Icon() != plugin.DefaultIcon {
		t.Fatalf("icon = %q", p.Icon())
	}
	if filters := p.ItemFilters(); filters == nil || len(filters) != 0 {
		t.Fatalf("filters = %#v, want empty list", filters)
	}
	if p.ID() == "" {
		t.Fatal("expected instance id")
	}

	item := newItem(t)
	if acc := p.RunAccept(context.Background(), item); !acc.Accepted {
		t.Fatal("hooks without accept should accept")
	}
	ok, err := p.Validate(context.Background(), p.Settings(), item)
	if !ok || err != nil {
		t.Fatalf("Validate = %v, %v", ok, err)
	}
	if err := p.Publish(context.Background(), p.Settings(), item); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Finalize(context.Background(), p.Settings(), item); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func TestPublishInstanceResolvesSettings(t *testing.T) {
	p, err := plugin.NewPublishInstance("full", "builtin:full", &fullHook{}, map[string]any{"Retries": 5, "Unknown": true}, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	if p.DisplayName() != "Full Hook" {
		t.Fatalf("display name = %q", p.DisplayName())
	}
	if got := p.Settings().Value("Retries"); got != int64(5) {
		t.Fatalf("Retries = %#v", got)
	}
	if got := p.Settings().String("Publish Template", ""); got != "{name}.v{version}" {
		t.Fatalf("Publish Template = %q", got)
	}
	if !p.Accepts("file.image") || p.Accepts("maya.scene") {
		t.Fatal("item filters not applied")
	}
}

func TestPublishInstanceRejectsBadSettings(t *testing.T) {
	_, err := plugin.NewPublishInstance("full", "builtin:full", &fullHook{}, map[string]any{"Retries": "many"}, nil)
	if !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	_, err = plugin.NewPublishInstance("nil", "missing.lua", nil, nil, nil)
	if !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil hook, got %v", err)
	}
}

func TestRunAcceptContainsFailures(t *testing.T) {
	item := newItem(t)
	for name, hook := range map[string]*fullHook{
		"error": {accept: plugin.Accept(), acceptErr: errBoom},
		"panic": {accept: plugin.Accept(), panicOn: plugin.MemberAccept},
	} {
		p, err := plugin.NewPublishInstance(name, "builtin:"+name, hook, nil, nil)
		if err != nil {
			t.Fatalf("NewPublishInstance: %v", err)
		}
		if acc := p.RunAccept(context.Background(), item); acc.Accepted {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestLifecyclePropagatesHookErrors(t *testing.T) {
	hook := &fullHook{valid: false}
	p, err := plugin.NewPublishInstance("full", "builtin:full", hook, nil, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	item := newItem(t)
	ok, err := p.Validate(context.Background(), p.Settings(), item)
	if ok || err != nil {
		t.Fatalf("Validate = %v, %v; want false, nil", ok, err)
	}
	if hook.sawPlugin != "full" {
		t.Fatalf("hook ran for plugin %q", hook.sawPlugin)
	}
	if err := p.Publish(context.Background(), p.Settings(), item); err != errBoom {
		t.Fatalf("Publish error = %v, want the hook's own error", err)
	}

	hook.panicOn = plugin.MemberPublish
	err = p.Publish(context.Background(), p.Settings(), item)
	if !errors.Is(err, faults.ErrHook) {
		t.Fatalf("expected panic to become a hook error, got %v", err)
	}
}

func TestCapabilitiesHideMembers(t *testing.T) {
	hook := &partialHook{fullHook: fullHook{valid: false}}
	p, err := plugin.NewPublishInstance("partial", "hooks/partial.lua", hook, nil, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	ok, err := p.Validate(context.Background(), p.Settings(), newItem(t))
	if !ok || err != nil {
		t.Fatalf("Validate = %v, %v; the hidden member should fall back to pass", ok, err)
	}
	if len(hook.calls) != 0 {
		t.Fatalf("hidden member was called: %v", hook.calls)
	}
}

func TestAcceptanceFromMapDefaults(t *testing.T) {
	acc := plugin.AcceptanceFromMap(map[string]any{"accepted": true, "checked": false})
	if !acc.Accepted || !acc.Required() || !acc.Enabled() || !acc.Visible() {
		t.Fatalf("missing keys should default to true: %+v", acc)
	}
	if acc.Checked() {
		t.Fatal("explicit checked=false lost")
	}
	if plugin.AcceptanceFromMap(map[string]any{}).Accepted {
		t.Fatal("missing accepted should reject")
	}
}

func TestGroupByItemKeepsEveryFailure(t *testing.T) {
	full, err := plugin.NewPublishInstance("full", "builtin:full", &fullHook{}, nil, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	tr := tree.New(session.Context{})
	a := tr.Root().CreateItem("file.image", "Image", "a")
	b := tr.Root().CreateItem("file.image", "Image", "b")
	var tasks []*tree.Task
	for _, item := range []*tree.Item{a, b, b} {
		task, err := item.AddTask(full)
		if err != nil {
			t.Fatalf("AddTask: %v", err)
		}
		tasks = append(tasks, task)
	}

	groups := plugin.GroupByItem([]plugin.TaskFailure{{Task: tasks[0]}, {Task: tasks[1], Err: errBoom}, {Task: tasks[2]}})
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[1].Item != b || len(groups[1].Failures) != 2 {
		t.Fatalf("second group = %+v", groups[1])
	}
	if groups[1].Failures[0].Err != errBoom || groups[1].Failures[1].Err != nil {
		t.Fatalf("failure order changed: %+v", groups[1].Failures)
	}
}

type postHook struct {
	verdict   plugin.Verdict
	seen      int
	published bool
}

func (h *postHook) PostValidate(_ context.Context, _ *tree.Tree, failed []plugin.ItemFailures) (plugin.Verdict, error) {
	h.seen = len(failed)
	return h.verdict, nil
}

func (h *postHook) PostPublish(context.Context, *tree.Tree) error {
	h.published = true
	return errBoom
}

func TestPostPhaseInstance(t *testing.T) {
	hook := &postHook{verdict: plugin.Veto}
	p, err := plugin.NewPostPhaseInstance("builtin:post", hook, nil)
	if err != nil {
		t.Fatalf("NewPostPhaseInstance: %v", err)
	}
	tr := tree.New(session.Context{})
	verdict, err := p.PostValidate(context.Background(), tr, nil)
	if err != nil || verdict != plugin.Veto {
		t.Fatalf("PostValidate = %v, %v", verdict, err)
	}
	if err := p.PostPublish(context.Background(), tr); err != errBoom {
		t.Fatalf("PostPublish error = %v", err)
	}
	if err := p.PostFinalize(context.Background(), tr); err != nil {
		t.Fatalf("missing post_finalize should be a no-op, got %v", err)
	}
}

type fileCollector struct {
	args map[string]any
}

func (c *fileCollector) ProcessFile(_ context.Context, _ schema.Settings, parent *tree.Item, path string, args map[string]any) error {
	c.args = args
	parent.CreateItem("file", "File", path)
	if path == "bad" {
		panic("cannot read")
	}
	return nil
}

func TestCollectorInstanceContainsFailures(t *testing.T) {
	hook := &fileCollector{}
	c, err := plugin.NewCollectorInstance("builtin:files", hook, nil, nil)
	if err != nil {
		t.Fatalf("NewCollectorInstance: %v", err)
	}
	tr := tree.New(session.Context{})
	c.ProcessFile(context.Background(), tr.Root(), "/shots/a.exr", nil)
	if hook.args == nil {
		t.Fatal("args map should never be nil for hooks that take it")
	}
	c.ProcessFile(context.Background(), tr.Root(), "bad", map[string]any{"frame": 1})
	c.ProcessCurrentSession(context.Background(), tr.Root())
	if tr.Len() != 2 {
		t.Fatalf("tree len = %d, want 2", tr.Len())
	}
}

type plainUIHook struct{ pushed []map[string]any }

func (h *plainUIHook) CreateSettingsWidget(parent any) (any, error) { return "widget:" + parent.(string), nil }

func (h *plainUIHook) SetUISettings(_ any, settings []map[string]any) error {
	h.pushed = settings
	return nil
}

func TestCustomUIWithoutItems(t *testing.T) {
	hook := &plainUIHook{}
	p, err := plugin.NewPublishInstance("ui", "builtin:ui", hook, nil, nil)
	if err != nil {
		t.Fatalf("NewPublishInstance: %v", err)
	}
	if !p.HasCustomUI() {
		t.Fatal("expected custom UI")
	}
	items := []*tree.Item{newItem(t)}
	widget, err := p.CreateSettingsWidget("panel", items)
	if err != nil || widget != "widget:panel" {
		t.Fatalf("CreateSettingsWidget = %v, %v", widget, err)
	}
	if err := p.SetUISettings(widget, []map[string]any{{"Retries": 1}}, items); err != nil {
		t.Fatalf("SetUISettings: %v", err)
	}
	if len(hook.pushed) != 1 {
		t.Fatalf("pushed = %v", hook.pushed)
	}
	got, err := p.GetUISettings(widget, items)
	if err != nil || len(got) != 0 {
		t.Fatalf("GetUISettings = %v, %v; want empty map", got, err)
	}
}
