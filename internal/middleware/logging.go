package middleware

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey is the key type used to store the logger in a context.
// Using a custom type prevents collisions.
type contextKey string

const loggerKey = contextKey("logger")

// ContextWithLogger returns a context carrying an operation-scoped logger
// enriched with a generated operation ID and the acting user. Controllers
// call this once per dispatched operation so every log line downstream can
// be correlated.
func ContextWithLogger(ctx context.Context, baseLogger *slog.Logger, operation, actorLogin string) context.Context {
	opLogger := baseLogger.With(
		slog.String("operation_id", uuid.NewString()),
		slog.String("operation", operation),
		slog.String("actor", actorLogin),
	)
	return context.WithValue(ctx, loggerKey, opLogger)
}

// GetLoggerFromCtx retrieves the operation-scoped logger from the context.
// It returns the default logger if none is found.
func GetLoggerFromCtx(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}
