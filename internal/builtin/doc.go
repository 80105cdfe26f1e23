// Package builtin holds the Go hooks reachable as "builtin:<name>".
//
// basic_collector turns files and folders into items typed by extension.
// publish_file copies an item's file into the publish root and registers it
// with tracking. upload_version creates a review version for an item and
// uploads its media or thumbnail. post_phase logs phase summaries and never
// vetoes. Register installs all of them into a hooks.Loader.
package builtin
