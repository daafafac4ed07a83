package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evibes/commerce/internal/ports"
)

const (
	defaultOutboxInterval   = 2 * time.Second
	defaultOutboxBatchSize  = 100
	defaultOutboxClaimTTL   = 30 * time.Second
	defaultOutboxMaxRetries = 5
)

// OutboxWorker drains the commerce outbox: each tick it claims a batch of
// unpublished records and hands them to the notification sink. Records that
// keep failing past the retry threshold are parked in the dead-letter state
// so one poison payload cannot stall order and user notifications behind it.
type OutboxWorker struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
}

func NewOutboxWorker(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *OutboxWorker {
	w := &OutboxWorker{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
	}
	if w.interval <= 0 {
		w.interval = defaultOutboxInterval
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultOutboxBatchSize
	}
	if w.claimTTL <= 0 {
		w.claimTTL = defaultOutboxClaimTTL
	}
	if w.maxRetries <= 0 {
		w.maxRetries = defaultOutboxMaxRetries
	}
	return w
}

// Run drains the outbox on every tick until the context is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox drain failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "outbox_process_once",
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

type batchTally struct {
	published    int
	retried      int
	deadLettered int
}

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	claimUntil := time.Now().UTC().Add(w.claimTTL)
	records, err := w.outbox.ClaimUnpublished(ctx, w.batchSize, claimToken, claimUntil)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	var tally batchTally
	for _, rec := range records {
		w.deliver(ctx, rec, claimToken, now, &tally)
	}

	w.logger.InfoContext(ctx, "outbox batch drained",
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "outbox_process_once",
		"outcome", "success",
		"batch_size", len(records),
		"published_count", tally.published,
		"failed_count", tally.retried,
		"dead_lettered_count", tally.deadLettered,
	)
	return nil
}

func (w *OutboxWorker) deliver(ctx context.Context, rec ports.OutboxRecord, claimToken string, now time.Time, tally *batchTally) {
	if rec.RetryCount >= w.maxRetries {
		// Claimed with the budget already spent: a crash between the last
		// failure and its dead-letter mark leaves records in this state.
		tally.deadLettered++
		_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, "retry threshold reached before publish", now)
		return
	}

	err := w.publisher.Publish(ctx, rec.EventType, rec.Payload)
	if err == nil {
		tally.published++
		_ = w.outbox.MarkPublished(ctx, rec.OutboxID, claimToken, now)
		return
	}

	tally.retried++
	retries := rec.RetryCount + 1
	attrs := []any{
		"module", "events.outbox_worker",
		"layer", "adapter",
		"operation", "publish_event",
		"outcome", "failure",
		"outbox_id", rec.OutboxID,
		"event_type", rec.EventType,
		"payload_bytes", len(rec.Payload),
		"retry_count", retries,
		"error", err,
	}
	if retries >= w.maxRetries {
		tally.deadLettered++
		w.logger.ErrorContext(ctx, "outbox record dead-lettered", attrs...)
		_ = w.outbox.MarkDeadLettered(ctx, rec.OutboxID, claimToken, err.Error(), now)
		return
	}
	w.logger.WarnContext(ctx, "outbox publish failed, will retry", attrs...)
	_ = w.outbox.MarkFailed(ctx, rec.OutboxID, claimToken, err.Error(), now)
}
