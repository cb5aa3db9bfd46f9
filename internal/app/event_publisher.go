package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/model"
)

// EventOutbox is the event table as seen from inside one transaction.
type EventOutbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// OutboxTx runs fn in a transaction bound to the event outbox.
type OutboxTx interface {
	WithinTx(ctx context.Context, fn func(EventOutbox) error) error
}

// EventWriter ships a batch of events to the broker.
type EventWriter interface {
	Publish(ctx context.Context, events []*model.OutboxEvent) error
}

// PublisherConfig tunes the event publisher; zero values get defaults.
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

func (c PublisherConfig) withDefaults() PublisherConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// EventPublisher moves recorded appointment events to kafka off the request path.
type EventPublisher struct {
	tx       OutboxTx
	writer   EventWriter
	cfg      PublisherConfig
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewEventPublisher fills unset config fields with defaults.
func NewEventPublisher(tx OutboxTx, writer EventWriter, cfg PublisherConfig, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		tx:       tx,
		writer:   writer,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Stop ends Run; it is safe to call more than once.
func (p *EventPublisher) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping event publisher")
		close(p.stopChan)
	})
}

// Run polls until ctx is cancelled or Stop is called.
func (p *EventPublisher) Run(ctx context.Context) {
	p.logger.Info("Starting event publisher",
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Int("batch_size", p.cfg.BatchSize),
	)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-p.stopChan:
			p.logger.Info("Event publisher stopped")
			return
		case <-ctx.Done():
			p.logger.Info("Event publisher cancelled")
			return
		}
	}
}

func (p *EventPublisher) drain(ctx context.Context) {
	for {
		n, err := p.PublishBatch(ctx)
		if err != nil {
			p.logger.Error("Failed to publish events", zap.Error(err))
			return
		}
		if n < p.cfg.BatchSize || ctx.Err() != nil {
			return
		}
	}
}

// PublishBatch ships one batch. The rows stay locked until the write succeeds
// and are marked in the same transaction, so a failed write leaves them for
// the next tick. Delivery is at least once.
func (p *EventPublisher) PublishBatch(ctx context.Context) (int, error) {
	var published int
	err := p.tx.WithinTx(ctx, func(outbox EventOutbox) error {
		events, err := outbox.FetchUnpublished(ctx, p.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		if err := p.writer.Publish(ctx, events); err != nil {
			return err
		}

		ids := make([]int64, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
		}
		if err := outbox.MarkPublished(ctx, ids); err != nil {
			return err
		}
		published = len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if published > 0 {
		p.logger.Debug("Events published", zap.Int("count", published))
	}
	return published, nil
}
