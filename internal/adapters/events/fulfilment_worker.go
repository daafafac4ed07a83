package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/evibes/commerce/internal/application"
)

// FulfilmentWorker periodically polls vendor adapters for delivery progress
// on lines still in flight and finalises orders whose lines all settled.
type FulfilmentWorker struct {
	logger    *slog.Logger
	service   *application.Service
	interval  time.Duration
	batchSize int
}

func NewFulfilmentWorker(
	logger *slog.Logger,
	service *application.Service,
	interval time.Duration,
	batchSize int,
) *FulfilmentWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &FulfilmentWorker{
		logger:    logger,
		service:   service,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (w *FulfilmentWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.service.DispatchPending(ctx, w.batchSize); err != nil {
			w.logger.ErrorContext(ctx, "dispatch iteration failed",
				"module", "events.fulfilment_worker",
				"layer", "adapter",
				"operation", "dispatch_pending",
				"outcome", "failure",
				"error", err,
			)
		}
		if err := w.service.PollDeliveries(ctx, w.batchSize); err != nil {
			w.logger.ErrorContext(ctx, "delivery poll iteration failed",
				"module", "events.fulfilment_worker",
				"layer", "adapter",
				"operation", "poll_deliveries",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
