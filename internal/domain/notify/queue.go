// Package notify buffers one-shot peer notifications for the caller.
//
// The queue is a bounded FIFO: the router appends, the caller drains.
// A notification read once is gone; when the buffer is full the oldest
// entry is dropped rather than blocking the router.
package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tabpilot/bridge/internal/shared/types"
)

// DefaultCapacity bounds the queue when the config does not say otherwise
const DefaultCapacity = 64

// Queue is a bounded FIFO of caller notifications
type Queue struct {
	mu       sync.Mutex
	items    []types.Notification
	capacity int
	dropped  int
	logger   *zap.Logger
}

// New creates a queue. capacity <= 0 falls back to DefaultCapacity.
func New(capacity int, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		capacity: capacity,
		logger:   logger,
	}
}

// Push appends a notification, evicting the oldest when full
func (q *Queue) Push(n types.Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		q.dropped++
		q.logger.Warn("notification queue full, dropped oldest",
			zap.Int("capacity", q.capacity),
		)
	}
	q.items = append(q.items, n)
}

// Drain returns all queued notifications and clears the queue. No replay.
func (q *Queue) Drain() []types.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

// Len reports the number of queued notifications
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped reports how many notifications were evicted unread
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
