package requestid

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/clubkit/pkg/logger"
)

// LoggerExtractor adds request_id to log records emitted within a request.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return logger.RequestID(id), true
		}
		return slog.Attr{}, false
	}
}
