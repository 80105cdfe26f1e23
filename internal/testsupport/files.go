package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteSourceFile creates path with size bytes made from its base name
// repeated, so two sources with different names never share content.
func WriteSourceFile(t testing.TB, path string, size int) {
	t.Helper()
	if size < 1 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	seed := []byte(filepath.Base(path))
	content := bytes.Repeat(seed, size/len(seed)+1)[:size]
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
