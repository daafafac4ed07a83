package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher is the notification sink used until a real mail or push
// channel is wired in: every event lands in the structured log instead.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.logger.InfoContext(ctx, "notification delivered",
		"module", "events.publisher",
		"event_type", eventType,
		"payload_bytes", len(payload),
	)
	return nil
}
