package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldPhase is the structured logging key for collect/validate/publish/finalize.
	FieldPhase = "phase"
	// FieldItem is the structured logging key for the item a hook runs against.
	FieldItem = "item"
	// FieldItemType is the structured logging key for item type identifiers.
	FieldItemType = "item_type"
	// FieldTask is the structured logging key for task names.
	FieldTask = "task"
	// FieldPlugin is the structured logging key for plugin instance names.
	FieldPlugin = "plugin"
	// FieldHook is the structured logging key for hook references.
	FieldHook = "hook"
	// FieldRunID is the structured logging key for publish run identifiers.
	FieldRunID = "run_id"
	// FieldEventType classifies notable log lines.
	FieldEventType = "event_type"
	// FieldErrorHint carries a next step for the operator.
	FieldErrorHint = "error_hint"
)

type contextKey string

const (
	phaseKey contextKey = "phase"
	runIDKey contextKey = "run_id"
	teeKey   contextKey = "tee"
)

// WithPhase annotates context with the running phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(phaseKey).(string)
	return v, ok && v != ""
}

// WithRunID annotates context with a publish run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	return v, ok && v != ""
}

// WithTee attaches an extra handler to ctx. Loggers derived through
// WithContext write to it in addition to their own handler.
func WithTee(ctx context.Context, h slog.Handler) context.Context {
	if h == nil {
		return ctx
	}
	return context.WithValue(ctx, teeKey, h)
}

func teeFromContext(ctx context.Context) (slog.Handler, bool) {
	h, ok := ctx.Value(teeKey).(slog.Handler)
	return h, ok
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	if tee, ok := teeFromContext(ctx); ok {
		logger = TeeLogger(logger, tee)
	}
	var fields []any
	if phase, ok := PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
