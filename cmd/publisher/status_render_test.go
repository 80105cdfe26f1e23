package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"publisher/internal/publish"
	"publisher/internal/schema"
	"publisher/internal/session"
	"publisher/internal/tree"
)

type namedPlugin struct{ name string }

func (p namedPlugin) Name() string { return p.name }
func (p namedPlugin) DisplayName() string { return p.name }
func (p namedPlugin) Path() string { return "builtin:test" }
func (p namedPlugin) Configured() map[string]any { return nil }
func (p namedPlugin) Description() string { return "" }
func (p namedPlugin) ItemFilters() []string { return []string{"*"} }
func (p namedPlugin) Settings() schema.Settings { return schema.Settings{} }

func (p namedPlugin) Validate(context.Context, schema.Settings, *tree.Item) (bool, error) {
	return true, nil
}
func (p namedPlugin) Publish(context.Context, schema.Settings, *tree.Item) error { return nil }
func (p namedPlugin) Finalize(context.Context, schema.Settings, *tree.Item) error { return nil }

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Publish", statusError, "Not ready", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Publish:", "[ERROR] Not ready")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Publish", statusOK, "Done", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestValidationLinesGroupByItem(t *testing.T) {
	tr := tree.New(session.Context{})
	item := tr.Root().CreateItem("file.image", "Image", "plate.exr")
	first, err := item.AddTask(namedPlugin{name: "Check Frames"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	second, err := item.AddTask(namedPlugin{name: "Check Name"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	report := publish.ValidationReport{
		Tasks: 3,
		Failures: []publish.Failure{
			{Task: first, Err: errors.New("frame 12 missing")},
			{Task: second},
		},
	}
	lines := validationLines(report, false)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "== plate.exr ==" {
		t.Fatalf("expected item header first, got %q", lines[0])
	}
	if !strings.Contains(lines[2], "[ERROR] frame 12 missing") {
		t.Fatalf("expected error detail, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "validation returned false") {
		t.Fatalf("expected false-result detail, got %q", lines[3])
	}
	if !strings.Contains(lines[4], "2 of 3 tasks failed") {
		t.Fatalf("expected summary, got %q", lines[4])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
