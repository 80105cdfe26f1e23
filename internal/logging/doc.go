// Package logging assembles structured slog loggers and formatting helpers used
// across the publisher.
//
// It owns the console and JSON handlers and exposes context helpers so phase
// code can tag log lines with the running phase and run id. Plugin invocations
// add item, task, and plugin fields through the Attr helpers. A publish run
// opens its own JSON file with OpenRunLog and places its handler in the run
// context with WithTee, so every logger derived through WithContext writes
// there too. PruneRunLogs keeps that directory bounded.
package logging
