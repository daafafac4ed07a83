package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted through the outbox. The notification sink (email,
// storefront notices) consumes these; delivery is fire-and-forget.
const (
	EventUserCreated   = "commerce.user_created"
	EventOrderCreated  = "commerce.order_created"
	EventOrderFinished = "commerce.order_finished"
	EventOrderFailed   = "commerce.order_failed"
)

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of sink specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for notifications.
// Events are written inside the same transactions that change order state.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// EventPublisher delivers a claimed outbox record to the notification sink.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}
