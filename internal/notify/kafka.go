package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Freeeeeet/office_hours/internal/model"
)

// EventLog is the durable buffer between a committed change and kafka.
type EventLog interface {
	Append(ctx context.Context, e *model.OutboxEvent) error
}

// EventLogSink records events for the kafka publisher. It never talks to kafka
// itself, so a booking does not wait on the broker.
type EventLogSink struct {
	log EventLog
}

// NewEventLogSink records events into log.
func NewEventLogSink(log EventLog) *EventLogSink {
	return &EventLogSink{log: log}
}

// Emit stores the JSON event keyed by its appointment.
func (s *EventLogSink) Emit(ctx context.Context, event model.AppointmentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	err = s.log.Append(ctx, &model.OutboxEvent{
		EventID:     event.ID,
		EventType:   event.Type,
		AggregateID: event.Appointment.ID,
		Payload:     payload,
		OccurredAt:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("record event %s: %w", event.ID, err)
	}
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes outbox events keyed by appointment id so one
// appointment's changes stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher writes to topic with acks from all in-sync replicas.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// Publish writes the batch in one call; it fails as a whole.
func (p *KafkaPublisher) Publish(ctx context.Context, events []*model.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(e.AggregateID, 10)),
			Value: e.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(e.EventID.String())},
				{Key: "event_type", Value: []byte(e.EventType)},
			},
			Time: e.OccurredAt,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d events: %w", len(events), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
