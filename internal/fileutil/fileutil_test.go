package fileutil

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(filepath.Join(dir, "nonexistent"), filepath.Join(dir, "dst.bin")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestPublishFileCreatesParentsAndRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plate.exr")
	if err := os.WriteFile(src, []byte("pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "publish", "sh010", "plate.v001.exr")

	if err := PublishFile(src, dst, false); err != nil {
		t.Fatalf("PublishFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dst), ".plate.v001.exr.partial")); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	err := PublishFile(src, dst, false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if err := PublishFile(src, dst, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestPublishDirAndSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "frames")
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"f.0002.exr", "f.0001.exr"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte("1234"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	size, err := Size(src)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 8 {
		t.Fatalf("size = %d, want 8", size)
	}

	published, err := PublishDir(src, filepath.Join(dir, "out"), false)
	if err != nil {
		t.Fatalf("PublishDir: %v", err)
	}
	if len(published) != 2 || filepath.Base(published[0]) != "f.0001.exr" {
		t.Fatalf("published = %v", published)
	}
}

func TestEnsureSpace(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "not", "yet", "created")

	free, err := FreeSpace(missing)
	if err != nil {
		t.Fatalf("FreeSpace: %v", err)
	}
	if free == 0 {
		t.Skip("temp volume reports no free space")
	}
	if err := EnsureSpace(missing, 1); err != nil {
		t.Fatalf("EnsureSpace(1): %v", err)
	}
	if err := EnsureSpace(missing, math.MaxInt64); !errors.Is(err, ErrInsufficientSpace) {
		t.Fatalf("expected ErrInsufficientSpace, got %v", err)
	}
}
