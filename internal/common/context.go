package common

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ContextKeyRunID  contextKey = "run_id"
	ContextKeyFileID contextKey = "file_id"
)

// WithRunID adds a parse run ID to the context
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, id)
}

// RunIDFromContext extracts the parse run ID, uuid.Nil when absent
func RunIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(ContextKeyRunID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// WithFileID adds a source file ID to the context
func WithFileID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ContextKeyFileID, id)
}

// FileIDFromContext extracts the source file ID, uuid.Nil when absent
func FileIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(ContextKeyFileID).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// LogAttrs returns the context IDs as slog key/value pairs.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id := RunIDFromContext(ctx); id != uuid.Nil {
		attrs = append(attrs, "run_id", id)
	}
	if id := FileIDFromContext(ctx); id != uuid.Nil {
		attrs = append(attrs, "file_id", id)
	}
	return attrs
}
