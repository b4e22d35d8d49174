package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPipe is the standardized key for pipe identifiers (name or URL).
	FieldPipe = "pipe"
	// FieldSessionID is the standardized key for receive/send session identifiers.
	FieldSessionID = "session_id"
	// FieldPushID is the standardized key for push completion identifiers.
	FieldPushID = "push_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact states what a warning means for the user.
	FieldImpact = "impact"
)

type contextKey int

const (
	pipeKey contextKey = iota
	sessionKey
	pushKey
)

// WithPipe tags ctx with a pipe identifier.
func WithPipe(ctx context.Context, pipe string) context.Context {
	return context.WithValue(ctx, pipeKey, pipe)
}

// WithSessionID tags ctx with an exchange session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// WithPushID tags ctx with a push completion identifier.
func WithPushID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, pushKey, id)
}

// SessionIDFromContext returns the session identifier stored on ctx.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, sessionKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 3)
	if v, ok := stringValue(ctx, pipeKey); ok {
		fields = append(fields, slog.String(FieldPipe, v))
	}
	if v, ok := stringValue(ctx, sessionKey); ok {
		fields = append(fields, slog.String(FieldSessionID, v))
	}
	if v, ok := stringValue(ctx, pushKey); ok {
		fields = append(fields, slog.String(FieldPushID, v))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
