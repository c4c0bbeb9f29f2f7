package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// NewContext stores l as the request logger of ctx.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// With derives a context whose request logger carries the extra attributes.
func With(ctx context.Context, attrs ...any) context.Context {
	return NewContext(ctx, FromOr(ctx, nil).With(attrs...))
}

// FromOr returns the request logger stored in ctx, else fallback, else the
// process logger.
func FromOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	if fallback != nil {
		return fallback
	}
	return LoggerWrapper()
}
