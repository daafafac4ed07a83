package http

import (
	"context"
	"log/slog"
)

const serviceName = "commerce"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// logHTTPOperationError records a failed handler outcome once, at the edge.
func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	logger := httpLogger().With(
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	)
	if err != nil {
		logger = logger.With("error", err.Error())
	}
	if statusCode >= 500 {
		logger.ErrorContext(ctx, "http operation failed")
		return
	}
	logger.WarnContext(ctx, "http operation failed")
}
