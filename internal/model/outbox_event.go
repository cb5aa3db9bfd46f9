package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is a committed appointment event waiting to be published to kafka.
type OutboxEvent struct {
	ID          int64      `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	EventType   EventType  `json:"event_type"`
	AggregateID int64      `json:"aggregate_id"` // appointment id, used as the message key
	Payload     []byte     `json:"payload"`
	OccurredAt  time.Time  `json:"occurred_at"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}
