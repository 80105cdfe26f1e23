package testsupport

import (
	"context"
	"path/filepath"
	"strings"

	"publisher/internal/config"
	"publisher/internal/hooks"
	"publisher/internal/plugin"
	"publisher/internal/schema"
	"publisher/internal/tree"
)

// Builtin names registered by RegisterStubs.
const (
	StubCollectorName = "stub_collector"
	RecorderName      = "recorder"
	StubPostPhaseName = "stub_post"
)

// StubCollector creates one "file.stub" item per path, named after the base
// name and carrying the path as a property.
type StubCollector struct {
	SessionPaths []string
}

func (c *StubCollector) ProcessFile(_ context.Context, _ schema.Settings, parent *tree.Item, path string) error {
	item := parent.CreateItem("file.stub", "Stub File", filepath.Base(path))
	item.Properties().Set("path", path)
	return nil
}

func (c *StubCollector) ProcessCurrentSession(_ context.Context, _ schema.Settings, parent *tree.Item) error {
	for _, path := range c.SessionPaths {
		item := parent.CreateItem("file.stub", "Session File", filepath.Base(path))
		item.Properties().Set("path", path)
	}
	return nil
}

// Recorder is a publish hook that logs each phase call as
// "phase item/plugin". Keys in Invalid make validate return false; keys in
// Errs make the phase return that error.
type Recorder struct {
	Calls   []string
	Invalid map[string]bool
	Errs    map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{Invalid: map[string]bool{}, Errs: map[string]error{}}
}

func (r *Recorder) Name() string { return "Recorder" }
func (r *Recorder) ItemFilters() []string { return []string{"file.*"} }

func (r *Recorder) call(ctx context.Context, phase string, item *tree.Item) string {
	name, _ := tree.PluginFromContext(ctx)
	key := phase + " " + item.Name() + "/" + name
	r.Calls = append(r.Calls, key)
	return key
}

func (r *Recorder) Validate(ctx context.Context, _ schema.Settings, item *tree.Item) (bool, error) {
	key := r.call(ctx, "validate", item)
	if err := r.Errs[key]; err != nil {
		return false, err
	}
	return !r.Invalid[key], nil
}

func (r *Recorder) Publish(ctx context.Context, _ schema.Settings, item *tree.Item) error {
	return r.Errs[r.call(ctx, "publish", item)]
}

func (r *Recorder) Finalize(ctx context.Context, _ schema.Settings, item *tree.Item) error {
	return r.Errs[r.call(ctx, "finalize", item)]
}

// Count returns how many calls were made for phase.
func (r *Recorder) Count(phase string) int {
	n := 0
	for _, call := range r.Calls {
		if strings.HasPrefix(call, phase+" ") {
			n++
		}
	}
	return n
}

// PostPhaseRecorder remembers what the manager reported after each phase and
// answers post_validate with Verdict.
type PostPhaseRecorder struct {
	Verdict   plugin.Verdict
	Failed    []plugin.ItemFailures
	Published bool
	Finalized bool
}

func (p *PostPhaseRecorder) PostValidate(_ context.Context, _ *tree.Tree, failed []plugin.ItemFailures) (plugin.Verdict, error) {
	p.Failed = failed
	return p.Verdict, nil
}

func (p *PostPhaseRecorder) PostPublish(context.Context, *tree.Tree) error {
	p.Published = true
	return nil
}

func (p *PostPhaseRecorder) PostFinalize(context.Context, *tree.Tree) error {
	p.Finalized = true
	return nil
}

// Stubs bundles one instance of each stub hook.
type Stubs struct {
	Collector *StubCollector
	Recorder  *Recorder
	PostPhase *PostPhaseRecorder
}

// RegisterStubs installs fresh stub hooks on loader. Every load of a stub
// returns the same instance, so tests can inspect it afterwards.
func RegisterStubs(loader *hooks.Loader) *Stubs {
	s := &Stubs{
		Collector: &StubCollector{},
		Recorder:  NewRecorder(),
		PostPhase: &PostPhaseRecorder{},
	}
	loader.Register(StubCollectorName, func(hooks.Env) any { return s.Collector })
	loader.Register(RecorderName, func(hooks.Env) any { return s.Recorder })
	loader.Register(StubPostPhaseName, func(hooks.Env) any { return s.PostPhase })
	return s
}

// WithStubHooks points the collector, post-phase hook, and publish plugins at
// the stubs RegisterStubs installs. The plugin list holds "Record" and
// "Check", both backed by the recorder with different settings.
func WithStubHooks() ConfigOption {
	return func(b *configBuilder) {
		WithCollector("builtin:"+StubCollectorName, nil)(b)
		WithPostPhase("builtin:" + StubPostPhaseName)(b)
		WithPublishPlugins(
			config.Plugin{Name: "Record", Hook: "builtin:" + RecorderName},
			config.Plugin{Name: "Check", Hook: "builtin:" + RecorderName, Settings: map[string]any{"strict": true}},
		)(b)
	}
}
