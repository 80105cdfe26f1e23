package tree

import (
	"iter"

	"publisher/internal/faults"
	"publisher/internal/session"
)

// Tree is the publish tree anchored at a synthetic root item.
type Tree struct {
	root *Item
}

// New returns an empty tree whose root carries ctx.
func New(ctx session.Context) *Tree {
	root := newItem(rootName, rootName, rootName)
	root.root = true
	root.SetContext(ctx)
	return &Tree{root: root}
}

// Root returns the synthetic root item.
func (t *Tree) Root() *Item { return t.root }

// All yields every item except the root in pre-order.
func (t *Tree) All() iter.Seq[*Item] {
	return t.root.Descendants()
}

// Items collects All into a slice.
func (t *Tree) Items() []*Item {
	var out []*Item
	for item := range t.All() {
		out = append(out, item)
	}
	return out
}

// Len counts the items in the tree, excluding the root.
func (t *Tree) Len() int {
	n := 0
	for range t.All() {
		n++
	}
	return n
}

// Tasks yields every task in tree order.
func (t *Tree) Tasks() iter.Seq[*Task] {
	return func(yield func(*Task) bool) {
		for item := range t.All() {
			for _, task := range item.tasks {
				if !yield(task) {
					return
				}
			}
		}
	}
}

// PersistentItems returns the top-level items marked persistent.
func (t *Tree) PersistentItems() []*Item {
	var out []*Item
	for _, item := range t.root.children {
		if item.persistent {
			out = append(out, item)
		}
	}
	return out
}

// Clear removes top-level items and their subtrees. Persistent items survive
// unless clearPersistent is set.
func (t *Tree) Clear(clearPersistent bool) {
	for _, item := range t.root.Children() {
		if item.persistent && !clearPersistent {
			continue
		}
		_ = t.root.RemoveChild(item)
	}
}

// RemoveItem detaches item from its parent. The root cannot be removed.
func (t *Tree) RemoveItem(item *Item) error {
	if item == t.root {
		return faults.Wrap(faults.ErrTreeIntegrity, "tree", "remove", "removing the root item is not allowed", nil)
	}
	return item.Remove()
}
