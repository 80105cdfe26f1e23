// Package tree holds the in-memory publish tree: a synthetic root item whose
// descendants are the things that may be published, and the tasks that bind
// each item to a plugin instance.
//
// Traversal is pre-order with children in insertion order and never yields
// the root. The same order drives phase execution and serialization. Trees
// serialize to a versioned Document; loading rejects missing or unknown
// versions before any tree is built.
package tree
