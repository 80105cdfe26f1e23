package publish

import (
	"context"
	"path/filepath"

	"publisher/internal/logging"
	"publisher/internal/tree"
)

// CollectedPathKey is the global property holding the path a top-level item
// was collected from.
const CollectedPathKey = "__collected_file_path__"

// CollectFiles collects each path that is not already tracked and returns
// the items created. Collecting a tracked path again adds nothing.
func (m *Manager) CollectFiles(ctx context.Context, paths []string) ([]*tree.Item, error) {
	var created []*tree.Item
	for _, path := range paths {
		items, err := m.CollectFile(ctx, path, nil)
		if err != nil {
			return created, err
		}
		created = append(created, items...)
	}
	return created, nil
}

// CollectFile collects one path, handing args to collectors that take them.
// New top-level items become persistent and remember path.
func (m *Manager) CollectFile(ctx context.Context, path string, args map[string]any) ([]*tree.Item, error) {
	ctx = logging.WithPhase(ctx, "collect")
	path = collectedPath(path)
	logger := logging.WithContext(ctx, m.logger).With(logging.String("path", path))
	if m.isCollected(path) {
		logger.Debug("skipping previously collected path")
		return nil, nil
	}

	before := m.snapshot()
	m.collector.ProcessFile(ctx, m.tree.Root(), path, args)
	created := m.newItems(before)
	if len(created) == 0 {
		logger.Debug("no items collected for path")
		return nil, nil
	}
	for _, item := range created {
		if item.Parent() == m.tree.Root() {
			if err := item.SetPersistent(true); err != nil {
				return nil, err
			}
		}
		item.Properties().Set(CollectedPathKey, path)
	}
	if err := m.attachPlugins(ctx, created); err != nil {
		return nil, err
	}
	logger.Info("collected path", logging.Int("items", len(created)))
	return created, nil
}

// CollectedFiles lists the paths of collected items that are still
// persistent. Turning persistence off hides an item here without removing it
// from the tree.
func (m *Manager) CollectedFiles() []string {
	var paths []string
	for _, item := range m.tree.PersistentItems() {
		if raw, ok := item.Properties().Lookup(CollectedPathKey); ok {
			if path, ok := raw.(string); ok {
				paths = append(paths, path)
			}
		}
	}
	return paths
}

// CollectSession clears every non-persistent item and asks the collector to
// rebuild them from the current session. Session items for paths already
// collected as files are dropped.
func (m *Manager) CollectSession(ctx context.Context) ([]*tree.Item, error) {
	ctx = logging.WithPhase(ctx, "collect")
	m.tree.Clear(false)

	before := m.snapshot()
	m.collector.ProcessCurrentSession(ctx, m.tree.Root())
	var created []*tree.Item
	for _, item := range m.newItems(before) {
		if item.Parent() == m.tree.Root() && m.isCollected(itemPath(item)) {
			if err := m.tree.RemoveItem(item); err != nil {
				return nil, err
			}
			continue
		}
		if isDetached(item, m.tree.Root()) {
			continue
		}
		created = append(created, item)
	}
	if err := m.attachPlugins(ctx, created); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, m.logger).Info("collected session", logging.Int("items", len(created)))
	return created, nil
}

// collectedPath is the identity a path is tracked under: absolute and clean.
func collectedPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (m *Manager) isCollected(path string) bool {
	if path == "" {
		return false
	}
	path = collectedPath(path)
	for _, collected := range m.CollectedFiles() {
		if collected == path {
			return true
		}
	}
	return false
}

func (m *Manager) snapshot() map[*tree.Item]struct{} {
	seen := map[*tree.Item]struct{}{}
	for item := range m.tree.All() {
		seen[item] = struct{}{}
	}
	return seen
}

// newItems returns the items not in before, in tree order.
func (m *Manager) newItems(before map[*tree.Item]struct{}) []*tree.Item {
	var out []*tree.Item
	for item := range m.tree.All() {
		if _, ok := before[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}

func itemPath(item *tree.Item) string {
	raw, ok := item.Properties().Lookup("path")
	if !ok {
		return ""
	}
	path, _ := raw.(string)
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// isDetached reports whether item no longer hangs below root.
func isDetached(item, root *tree.Item) bool {
	for it := item; it != nil; it = it.Parent() {
		if it == root {
			return false
		}
	}
	return true
}
