// Package main hosts the publisher CLI.
//
// Each command loads configuration, opens the tracking store, rebuilds the
// publish tree from the tree file, and saves it back when the command changed
// it. Commands hold a process lock while they run so two invocations never
// interleave writes to the same tree.
package main
