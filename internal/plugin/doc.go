// Package plugin wraps loaded hooks behind stable call surfaces.
//
// A hook is any value; the optional interfaces in hooks.go describe the
// members it may provide. Capability detection runs once when an instance is
// constructed: declared metadata is read and defaulted, settings are resolved
// against the declared schema, and the lifecycle callables are cached. Hooks
// that decide their members at runtime (script hooks) implement Capabilities
// so detection can ask them directly.
//
// Instances contain failures the way the publish pipeline expects: accept
// errors become rejections, collector errors are logged, and validate,
// publish, and finalize errors are logged and returned unchanged.
package plugin
