package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

const defaultDeliveryTimeout = 2 * time.Second

// Queue is a Dispatcher that hands events to next from a bounded buffer on a
// single goroutine. Publish never blocks: when the buffer is full the event is
// dropped and counted.
type Queue struct {
	next    Dispatcher
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	ch      chan Event
	done    chan struct{}
	dropped atomic.Int64
}

// NewQueue starts the delivery goroutine. Call Close to drain and stop it.
func NewQueue(next Dispatcher, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		next:    next,
		logger:  logger,
		timeout: defaultDeliveryTimeout,
		ch:      make(chan Event, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Publish enqueues event. The caller's context is not used for delivery,
// which happens after the request that produced the event has finished.
func (q *Queue) Publish(_ context.Context, event Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- event:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

func (q *Queue) Subscribe(eventType EventType, handler EventHandler) {
	q.next.Subscribe(eventType, handler)
}

// Dropped reports how many events were discarded because the buffer was full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

func (q *Queue) run() {
	defer close(q.done)
	for event := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.next.Publish(ctx, event); err != nil {
			q.logger.Warn("event delivery failed",
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the buffer drains or ctx ends.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
