package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Freeeeeet/office_hours/internal/model"
)

// NotificationQueue is the notification outbox as the worker sees it.
type NotificationQueue interface {
	Claim(ctx context.Context, limit int, lease time.Duration, maxAttempts int) ([]*model.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, maxAttempts int, retryAfter time.Duration, lastError string) error
}

// Deliverer sends one notification over its channel.
type Deliverer interface {
	Deliver(ctx context.Context, n *model.Notification) error
}

// WorkerConfig tunes the notification worker; zero values get defaults.
type WorkerConfig struct {
	PollInterval time.Duration
	Lease        time.Duration
	RetryDelay   time.Duration // grows linearly with attempts
	BatchSize    int
	MaxAttempts  int
	Concurrency  int
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.Lease <= 0 {
		c.Lease = time.Minute
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// NotificationWorker drains the notification outbox in the background.
type NotificationWorker struct {
	queue    NotificationQueue
	sender   Deliverer
	cfg      WorkerConfig
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewNotificationWorker fills unset config fields with defaults.
func NewNotificationWorker(queue NotificationQueue, sender Deliverer, cfg WorkerConfig, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{
		queue:    queue,
		sender:   sender,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs the worker in its own goroutine.
func (w *NotificationWorker) Start(ctx context.Context) {
	go w.Run(ctx)
}

// Stop ends Run; it is safe to call more than once.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping notification worker")
		close(w.stopChan)
	})
}

// Run polls until ctx is cancelled or Stop is called.
func (w *NotificationWorker) Run(ctx context.Context) {
	w.logger.Info("Starting notification worker",
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("batch_size", w.cfg.BatchSize),
	)

	w.drain(ctx)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.drain(ctx)
		case <-w.stopChan:
			w.logger.Info("Notification worker stopped")
			return
		case <-ctx.Done():
			w.logger.Info("Notification worker cancelled")
			return
		}
	}
}

// drain keeps claiming while full batches come back clean. A batch with
// failures waits for the next tick so a broken channel is not hammered.
func (w *NotificationWorker) drain(ctx context.Context) {
	for {
		claimed, failed, err := w.ProcessBatch(ctx)
		if err != nil {
			w.logger.Error("Failed to process notification batch", zap.Error(err))
			return
		}
		if claimed < w.cfg.BatchSize || failed > 0 || ctx.Err() != nil {
			return
		}
	}
}

// ProcessBatch claims one batch and delivers it. Delivery failures are recorded
// on the row and do not fail the batch; they are counted in failed.
func (w *NotificationWorker) ProcessBatch(ctx context.Context) (claimed, failed int, err error) {
	items, err := w.queue.Claim(ctx, w.cfg.BatchSize, w.cfg.Lease, w.cfg.MaxAttempts)
	if err != nil {
		return 0, 0, err
	}
	if len(items) == 0 {
		return 0, 0, nil
	}

	var failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, item := range items {
		item := item
		g.Go(func() error {
			if !w.deliver(gctx, item) {
				failures.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return len(items), int(failures.Load()), nil
}

// deliver reports whether the notification went out.
func (w *NotificationWorker) deliver(ctx context.Context, n *model.Notification) bool {
	fields := []zap.Field{
		zap.Int64("notification_id", n.ID),
		zap.String("channel", string(n.Channel)),
		zap.Int("attempt", n.Attempts),
	}

	if err := w.sender.Deliver(ctx, n); err != nil {
		w.logger.Warn("Notification delivery failed", append(fields, zap.Error(err))...)
		retryAfter := w.cfg.RetryDelay * time.Duration(max(n.Attempts, 1))
		if markErr := w.queue.MarkFailed(ctx, n.ID, w.cfg.MaxAttempts, retryAfter, err.Error()); markErr != nil {
			w.logger.Error("Failed to record delivery failure", append(fields, zap.Error(markErr))...)
		}
		return false
	}

	if err := w.queue.MarkSent(ctx, n.ID); err != nil {
		w.logger.Error("Failed to mark notification sent", append(fields, zap.Error(err))...)
		return true
	}
	w.logger.Debug("Notification sent", fields...)
	return true
}
