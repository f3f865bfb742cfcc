package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

const (
	// loggerKey is the context key for the logger.
	loggerKey contextKey = iota
	// passIDKey is the context key for the pass identifier.
	passIDKey
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}

	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}

	return Default()
}

// Ctx is a shorter alias for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx)
}

// WithPassID tags the context and its logger with the pass identifier.
func WithPassID(ctx context.Context, passID string) context.Context {
	ctx = context.WithValue(ctx, passIDKey, passID)
	return WithField(ctx, "pass_id", passID)
}

// PassID extracts the pass identifier from context.
func PassID(ctx context.Context) string {
	if id, ok := ctx.Value(passIDKey).(string); ok {
		return id
	}
	return ""
}

// WithFields adds structured fields to the logger in the context.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	logCtx := FromContext(ctx).With()
	for key, value := range fields {
		logCtx = addField(logCtx, key, value)
	}
	newLogger := logCtx.Logger()
	return WithLogger(ctx, &newLogger)
}

// WithField adds a single field to the logger in the context.
func WithField(ctx context.Context, key string, value any) context.Context {
	logCtx := addField(FromContext(ctx).With(), key, value)
	newLogger := logCtx.Logger()
	return WithLogger(ctx, &newLogger)
}

// WithEmail adds the identity key to the logger.
func WithEmail(ctx context.Context, email string) context.Context {
	return WithField(ctx, "email", email)
}

// WithLedger adds the ledger name and 1-based row number to the logger.
func WithLedger(ctx context.Context, ledger string, row int) context.Context {
	return WithFields(ctx, map[string]any{"ledger": ledger, "row": row})
}

// WithFlow adds the reconciliation flow name to the logger.
func WithFlow(ctx context.Context, flow string) context.Context {
	return WithField(ctx, "flow", flow)
}

// WithOperation adds operation context to the logger.
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithField(ctx, "operation", operation)
}
