package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"publisher/internal/config"
	"publisher/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	sourceDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "publisher", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		sourceDir:  filepath.Join(base, "work"),
	}
}

func (e *cliTestEnv) source(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.sourceDir, name)
	testsupport.WriteSourceFile(t, path, 2048)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
tree_file = %q
hooks_dir = %q
log_dir = %q
publish_root = %q
tracking_db = %q

[logging]
level = "error"

[session]
project = %q
entity_type = %q
entity_id = %d
entity_name = %q
step = %q
user = %q

[[publish_plugins]]
name = "Publish to Tracking"
hook = "builtin:publish_file"

[[publish_plugins]]
name = "Upload for review"
hook = "builtin:upload_version"
`,
		cfg.Paths.TreeFile,
		cfg.Paths.HooksDir,
		cfg.Paths.LogDir,
		cfg.Paths.PublishRoot,
		cfg.Paths.TrackingDB,
		cfg.Session.Project,
		cfg.Session.EntityType,
		cfg.Session.EntityID,
		cfg.Session.EntityName,
		cfg.Session.Step,
		cfg.Session.User,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestCollectValidatePublishFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.source(t, "plate.v001.png")

	out, _, err := runCLI(t, []string{"collect", src}, env.configPath)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	requireContains(t, out, "Collected plate.png (Image) with 2 tasks")

	out, _, err = runCLI(t, []string{"collect", src}, env.configPath)
	if err != nil {
		t.Fatalf("collect again: %v", err)
	}
	requireContains(t, out, "Nothing new collected")
	requireContains(t, out, "Tree holds 1 items")

	out, _, err = runCLI(t, []string{"tree", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("tree show: %v", err)
	}
	requireContains(t, out, "[file.image] plate.png (persistent)")
	requireContains(t, out, "* [x] Publish to Tracking")

	out, _, err = runCLI(t, []string{"validate"}, env.configPath)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	requireContains(t, out, "2 tasks passed")

	out, _, err = runCLI(t, []string{"publish"}, env.configPath)
	if err != nil {
		t.Fatalf("publish: %v\n%s", err, out)
	}
	requireContains(t, out, "2 tasks published")
	requireContains(t, out, filepath.Join(env.cfg.Paths.LogDir, "runs"))

	dest := filepath.Join(env.cfg.Paths.PublishRoot, "test_project", "sh010", "comp", "v001", "plate.v001.png")
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected published file at %s: %v", dest, err)
	}

	out, _, err = runCLI(t, []string{"tree", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("tree show: %v", err)
	}
	requireContains(t, out, "Publish tree is empty")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "succeeded")

	out, _, err = runCLI(t, []string{"history", "--files"}, env.configPath)
	if err != nil {
		t.Fatalf("history --files: %v", err)
	}
	requireContains(t, out, "plate")
}

func TestValidateReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.source(t, "comp.v003.exr")

	if _, _, err := runCLI(t, []string{"collect", src}, env.configPath); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if err := os.Remove(src); err != nil {
		t.Fatalf("remove source: %v", err)
	}

	out, _, err := runCLI(t, []string{"validate"}, env.configPath)
	if err == nil {
		t.Fatalf("expected validation failure, got output:\n%s", out)
	}
	requireContains(t, out, "== comp.exr ==")
	requireContains(t, out, "[ERROR]")

	out, _, err = runCLI(t, []string{"publish"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("publish error = %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, `"status": "validation_failed"`)
}

func TestTreeQueryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.source(t, "a.v001.png")
	second := env.source(t, "b.v001.mov")

	if _, _, err := runCLI(t, []string{"collect", first, second}, env.configPath); err != nil {
		t.Fatalf("collect: %v", err)
	}

	out, _, err := runCLI(t, []string{"tree", "query", "$.root_item.children[*].name"}, env.configPath)
	if err != nil {
		t.Fatalf("tree query: %v", err)
	}
	requireContains(t, out, `"a.png"`)
	requireContains(t, out, `"b.mov"`)

	if _, _, err := runCLI(t, []string{"tree", "query", "$[[["}, env.configPath); err == nil {
		t.Fatal("expected an invalid expression to fail")
	}

	out, _, err = runCLI(t, []string{"tree", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("tree clear: %v", err)
	}
	requireContains(t, out, "Removed 0 items, 2 remain")

	out, _, err = runCLI(t, []string{"tree", "clear", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("tree clear --all: %v", err)
	}
	requireContains(t, out, "Removed 2 items, 0 remain")
}

func TestPluginsListsConfiguredInstances(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"plugins"}, env.configPath)
	if err != nil {
		t.Fatalf("plugins: %v", err)
	}
	requireContains(t, out, "Shot sh010, comp")
	requireContains(t, out, "Publish to Tracking")
	requireContains(t, out, "builtin:upload_version")

	out, _, err = runCLI(t, []string{"plugins", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("plugins --json: %v", err)
	}
	requireContains(t, out, `"item_filters"`)
}

func TestCollectRequiresInput(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"collect"}, env.configPath); err == nil {
		t.Fatal("expected collect without paths to fail")
	}
}
