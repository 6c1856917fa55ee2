// Package worker runs the background consumer that keeps cached analytics
// in step with record changes published on the broker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// Invalidator drops cached derived values for a user.
type Invalidator interface {
	Invalidate(ctx context.Context, user core.UserID) int
}

// Consumer delivers record-changed events until ctx ends.
type Consumer interface {
	ConsumeRecordChanged(ctx context.Context, handler amqp.Handler) error
}

type Stats struct {
	Events      int64 // record-changed events handled
	Invalidated int64 // cache entries dropped
}

// InvalidationWorker invalidates a user's cached views whenever one of
// their records changes.
type InvalidationWorker struct {
	consumer Consumer
	cache    Invalidator
	logger   *log.Logger

	events      atomic.Int64
	invalidated atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

func NewInvalidationWorker(consumer Consumer, cache Invalidator, logger *log.Logger) *InvalidationWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &InvalidationWorker{
		consumer: consumer,
		cache:    cache,
		logger:   logger.WithComponent(log.ComponentAMQP),
	}
}

// HandleRecordChanged is the amqp.Handler for record-changed events.
func (w *InvalidationWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	n := w.cache.Invalidate(ctx, msg.UserID)
	w.events.Add(1)
	w.invalidated.Add(int64(n))
	w.logger.DebugContext(ctx, "Processed record-changed event",
		log.FieldEventID, msg.EventID,
		log.FieldUserID, string(msg.UserID),
		log.FieldRecordType, string(msg.RecordType),
		log.FieldMonth, msg.Month,
		log.FieldCount, n)
	return nil
}

// Start begins consuming in the background. Returns an error if already running.
func (w *InvalidationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("invalidation worker is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	go w.run(runCtx, w.doneCh)

	w.logger.InfoContext(ctx, "Invalidation worker started", log.FieldOperation, log.OpStartup)
	return nil
}

func (w *InvalidationWorker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	err := w.consumer.ConsumeRecordChanged(ctx, w.HandleRecordChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "Record-changed consumer stopped", log.FieldError, err.Error())
	}
}

// Stop cancels consumption and waits for the consumer to return or ctx to end.
func (w *InvalidationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		stats := w.Stats()
		w.logger.InfoContext(ctx, "Invalidation worker stopped",
			log.FieldOperation, log.OpShutdown, "events", stats.Events, "invalidated", stats.Invalidated)
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Invalidation worker stop timed out")
		return ctx.Err()
	}
}

func (w *InvalidationWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *InvalidationWorker) Stats() Stats {
	return Stats{Events: w.events.Load(), Invalidated: w.invalidated.Load()}
}
