package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository/base"
)

const notificationColumns = `
	id, event_id, channel, recipient, subject, body, status, attempts, last_error, locked_until, next_attempt_at, created_at, sent_at
`

// NotificationRepository is the outbox of pending emails and telegram messages.
type NotificationRepository struct {
	*base.Repository
}

// NewNotificationRepository binds the outbox to a pool or a transaction.
func NewNotificationRepository(db base.DBTX) *NotificationRepository {
	return &NotificationRepository{Repository: base.NewRepository(db)}
}

// Enqueue stores the notifications as pending, due now.
func (r *NotificationRepository) Enqueue(ctx context.Context, items []*model.Notification) error {
	query := `
		INSERT INTO notifications (event_id, channel, recipient, subject, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at
	`

	for _, n := range items {
		err := r.QueryRow(ctx, query, n.EventID, n.Channel, n.Recipient, n.Subject, n.Body).
			Scan(&n.ID, &n.Status, &n.CreatedAt)
		if err != nil {
			return fmt.Errorf("enqueue notification: %w", err)
		}
	}

	return nil
}

// Claim leases up to limit deliverable notifications for lease. Pending rows wait
// for their retry time. Rows whose lease expired (a worker died mid-send) are
// claimed again while attempts remain and failed otherwise. Each claim counts as an attempt.
func (r *NotificationRepository) Claim(ctx context.Context, limit int, lease time.Duration, maxAttempts int) ([]*model.Notification, error) {
	abandon := `
		UPDATE notifications
		SET status = 'failed', locked_until = NULL, last_error = 'lease expired on final attempt'
		WHERE status = 'sending' AND locked_until < NOW() AND attempts >= $1
	`
	if _, err := r.ExecAffected(ctx, abandon, maxAttempts); err != nil {
		return nil, fmt.Errorf("fail abandoned notifications: %w", err)
	}

	query := `
		UPDATE notifications
		SET status = 'sending',
		    attempts = attempts + 1,
		    locked_until = NOW() + make_interval(secs => $2)
		WHERE id IN (
			SELECT id
			FROM notifications
			WHERE (status = 'pending' AND next_attempt_at <= NOW())
			   OR (status = 'sending' AND locked_until < NOW() AND attempts < $3)
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + notificationColumns

	rows, err := r.Query(ctx, query, limit, lease.Seconds(), maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("claim notifications: %w", err)
	}
	defer rows.Close()

	var list []*model.Notification
	for rows.Next() {
		var n model.Notification
		err := rows.Scan(
			&n.ID,
			&n.EventID,
			&n.Channel,
			&n.Recipient,
			&n.Subject,
			&n.Body,
			&n.Status,
			&n.Attempts,
			&n.LastError,
			&n.LockedUntil,
			&n.NextAttemptAt,
			&n.CreatedAt,
			&n.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		list = append(list, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return list, nil
}

// MarkSent records a successful delivery.
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `
		UPDATE notifications
		SET status = 'sent', sent_at = NOW(), locked_until = NULL, last_error = ''
		WHERE id = $1
	`
	if _, err := r.ExecAffected(ctx, query, id); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed returns the row to the queue after retryAfter, or fails it for good
// once attempts reach maxAttempts.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, maxAttempts int, retryAfter time.Duration, lastError string) error {
	query := `
		UPDATE notifications
		SET status = CASE WHEN attempts >= $2 THEN 'failed' ELSE 'pending' END,
		    locked_until = NULL,
		    next_attempt_at = NOW() + make_interval(secs => $3),
		    last_error = $4
		WHERE id = $1
	`
	if _, err := r.ExecAffected(ctx, query, id, maxAttempts, retryAfter.Seconds(), lastError); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}
