package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationChannel is how a notification reaches its recipient.
type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelTelegram NotificationChannel = "telegram"
)

// NotificationStatus tracks a notification through the outbox.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSending NotificationStatus = "sending" // claimed by a worker
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is a queued outbound message.
type Notification struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	Channel       NotificationChannel `json:"channel"`
	Recipient     string              `json:"recipient"` // email address or telegram chat id
	Subject       string              `json:"subject"`
	Body          string              `json:"body"`
	Status        NotificationStatus  `json:"status"`
	Attempts      int                 `json:"attempts"`
	LastError     string              `json:"last_error,omitempty"`
	LockedUntil   *time.Time          `json:"locked_until,omitempty"`
	NextAttemptAt time.Time           `json:"next_attempt_at"`
	CreatedAt     time.Time           `json:"created_at"`
	SentAt        *time.Time          `json:"sent_at,omitempty"`
}
