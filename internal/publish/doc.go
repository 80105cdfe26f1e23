// Package publish drives the publish tree through collection and the
// validate, publish, and finalize phases.
//
// The Manager owns one tree. Collection asks the configured collector to add
// items and then offers each new item to the publish plugins configured for
// its context; every plugin that accepts the item gets a task. Phases walk
// runnable tasks in tree pre-order through a TaskGenerator, which sees every
// outcome before the next task runs. Validation collects failures and keeps
// going; a publish or finalize failure stops its phase and is returned as a
// *PhaseError wrapping the task's own error. A post-phase hook is consulted
// after each phase and may veto a passing validation.
//
// Run chains the three phases and records the outcome in the tracking store.
// Save and Load persist the tree as a versioned JSON document, and Query
// evaluates JSONPath expressions against that document.
package publish
