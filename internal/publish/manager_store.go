package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"publisher/internal/faults"
	"publisher/internal/logging"
	"publisher/internal/tree"
)

// Save writes the tree to path. Writers and readers of the same file
// serialize on path+".lock"; the document is replaced by rename.
func (m *Manager) Save(path string) error {
	var buf bytes.Buffer
	if err := m.tree.Encode(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create tree directory: %w", err)
	}

	unlock, err := lockFile(path)
	if err != nil {
		return err
	}
	defer unlock()

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	m.logger.Debug("tree saved", logging.String("path", path), logging.Int("items", m.tree.Len()))
	return nil
}

// Load replaces the tree with the document at path. Plugins referenced by
// tasks are rebuilt through the instance cache. On error the current tree is
// left untouched.
func (m *Manager) Load(ctx context.Context, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return faults.Wrap(faults.ErrNotFound, "publish", "load tree", path, err)
	}
	unlock, err := lockFile(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		unlock()
		return fmt.Errorf("open tree document: %w", err)
	}
	loaded, err := tree.Decode(f, tree.ResolverFunc(func(name, hookPath string, settings map[string]any) (tree.Plugin, error) {
		return m.ResolvePlugin(ctx, name, hookPath, settings)
	}))
	f.Close()
	unlock()
	if err != nil {
		return err
	}
	m.tree = loaded
	m.logger.Debug("tree loaded", logging.String("path", path), logging.Int("items", loaded.Len()))
	return nil
}

// Query evaluates a JSONPath expression against the serialized tree and
// returns the matches in document order.
func (m *Manager) Query(expr string) ([]any, error) {
	var buf bytes.Buffer
	if err := m.tree.Encode(&buf); err != nil {
		return nil, err
	}
	return QueryDocument(buf.Bytes(), expr)
}

// QueryDocument evaluates a JSONPath expression against a tree document.
func QueryDocument(data []byte, expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "publish", "query", fmt.Sprintf("invalid expression %q", expr), err)
	}
	root, err := oj.Parse(data)
	if err != nil {
		return nil, faults.Wrap(faults.ErrSerialization, "publish", "query", "invalid tree document", err)
	}
	return x.Get(root), nil
}

func lockFile(path string) (func(), error) {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire tree lock: %w", err)
	}
	return func() { _ = lock.Unlock() }, nil
}
