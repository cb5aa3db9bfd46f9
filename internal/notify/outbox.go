package notify

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/model"
)

// NotificationStore persists queued notifications.
type NotificationStore interface {
	Enqueue(ctx context.Context, notifications []*model.Notification) error
}

// OutboxSink turns events into queued notifications; a worker delivers them later.
type OutboxSink struct {
	store    NotificationStore
	channels map[model.NotificationChannel]bool
	logger   *zap.Logger
}

// NewOutboxSink queues notifications only for the given channels.
func NewOutboxSink(store NotificationStore, logger *zap.Logger, channels ...model.NotificationChannel) *OutboxSink {
	enabled := make(map[model.NotificationChannel]bool, len(channels))
	for _, ch := range channels {
		enabled[ch] = true
	}
	return &OutboxSink{store: store, channels: enabled, logger: logger}
}

// Emit renders the event and queues one notification per recipient and channel.
func (s *OutboxSink) Emit(ctx context.Context, event model.AppointmentEvent) error {
	items := s.build(event)
	if len(items) == 0 {
		return nil
	}

	if err := s.store.Enqueue(ctx, items); err != nil {
		return fmt.Errorf("enqueue notifications for event %s: %w", event.ID, err)
	}

	s.logger.Debug("notifications queued",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", string(event.Type)),
		zap.Int("count", len(items)),
	)
	return nil
}

func (s *OutboxSink) build(event model.AppointmentEvent) []*model.Notification {
	var out []*model.Notification
	add := func(ch model.NotificationChannel, to string, m Message) {
		if !s.channels[ch] || to == "" {
			return
		}
		out = append(out, &model.Notification{
			EventID:   event.ID,
			Channel:   ch,
			Recipient: to,
			Subject:   m.Subject,
			Body:      m.Body,
			Status:    model.NotificationPending,
		})
	}

	for _, m := range Render(event) {
		add(model.ChannelEmail, m.To.Email, m)
		if m.To.TelegramChatID != nil {
			add(model.ChannelTelegram, strconv.FormatInt(*m.To.TelegramChatID, 10), m)
		}
	}
	return out
}
