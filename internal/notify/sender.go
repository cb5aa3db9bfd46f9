package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/model"
)

// Sender delivers one message to an address: an email address or a telegram chat id.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Sink receives committed appointment events.
type Sink interface {
	Emit(ctx context.Context, event model.AppointmentEvent) error
}

// ErrNoSender is returned for a channel nobody registered.
var ErrNoSender = errors.New("no sender for channel")

// Dispatcher routes outbox rows to the sender of their channel.
type Dispatcher struct {
	senders map[model.NotificationChannel]Sender
}

// NewDispatcher returns a dispatcher with no channels.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{senders: make(map[model.NotificationChannel]Sender)}
}

// Register sets the sender for a channel. A nil sender is ignored so optional
// channels can be wired unconditionally.
func (d *Dispatcher) Register(channel model.NotificationChannel, s Sender) *Dispatcher {
	if s != nil {
		d.senders[channel] = s
	}
	return d
}

// Handles reports whether a sender is registered for channel.
func (d *Dispatcher) Handles(channel model.NotificationChannel) bool {
	_, ok := d.senders[channel]
	return ok
}

// Deliver sends n through the sender registered for its channel.
func (d *Dispatcher) Deliver(ctx context.Context, n *model.Notification) error {
	s, ok := d.senders[n.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSender, n.Channel)
	}
	return s.Send(ctx, n.Recipient, n.Subject, n.Body)
}

// MultiSink fans an event out to several sinks and joins their errors.
type MultiSink []Sink

// Emit calls every sink and joins their errors.
func (m MultiSink) Emit(ctx context.Context, event model.AppointmentEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
