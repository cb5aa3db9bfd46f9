package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository/base"
)

// EventOutboxRepository stores appointment events until the publisher ships them to kafka.
type EventOutboxRepository struct {
	*base.Repository
}

// NewEventOutboxRepository binds the repository to a pool or a transaction.
func NewEventOutboxRepository(db base.DBTX) *EventOutboxRepository {
	return &EventOutboxRepository{Repository: base.NewRepository(db)}
}

// Append stores an event. A replayed event id is ignored.
func (r *EventOutboxRepository) Append(ctx context.Context, e *model.OutboxEvent) error {
	query := `
		INSERT INTO event_outbox (event_id, event_type, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, e.EventID, e.EventType, e.AggregateID, e.Payload, e.OccurredAt).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil && !base.IsNotFound(err) {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

// FetchUnpublished locks up to limit unpublished events in insertion order.
// Must run inside a transaction so the lock holds until MarkPublished commits.
func (r *EventOutboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_id, event_type, aggregate_id, payload, occurred_at, created_at, published_at
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox events: %w", err)
	}
	defer rows.Close()

	var list []*model.OutboxEvent
	for rows.Next() {
		var e model.OutboxEvent
		err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.EventType,
			&e.AggregateID,
			&e.Payload,
			&e.OccurredAt,
			&e.CreatedAt,
			&e.PublishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}

	return list, nil
}

// MarkPublished stamps the events as published.
func (r *EventOutboxRepository) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE event_outbox SET published_at = NOW() WHERE id = ANY($1)`
	if _, err := r.ExecAffected(ctx, query, ids); err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}
