package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultVisibilityTimeout is how long a dequeued message stays invisible
// when the caller does not pick its own timeout.
const DefaultVisibilityTimeout = 30 * time.Second

// JobMessage is the envelope carried by the queue. It has no identity
// beyond the receipt handed out on dequeue.
type JobMessage struct {
	RequestID string `json:"requestId"`
	AccountID string `json:"accountId"`
	Priority  string `json:"priority,omitempty"` // "high" | "normal" | "low"
}

// Delivery is one leased message.
type Delivery struct {
	Message  JobMessage
	Receipt  string
	Attempts int
}

// Producer is the enqueue-only view handed to the HTTP layer. Every
// Adapter satisfies it; so does the asynq client, where leasing happens
// on the Redis side instead.
type Producer interface {
	Enqueue(ctx context.Context, msg JobMessage, delay time.Duration) error
}

// Adapter is the lease-based, at-least-once queue contract.
//
// Dequeue is a non-blocking poll: it returns (nil, nil) when nothing is
// visible and the caller re-polls on its own interval. A returned message
// stays in the queue, hidden for the visibility timeout; it must be
// Completed to go away or it redelivers after the lease expires. Abandon
// releases the lease immediately. There is no max delivery count: a poison
// message redelivers until the worker's terminal-status check eats it.
type Adapter interface {
	Enqueue(ctx context.Context, msg JobMessage, delay time.Duration) error
	Dequeue(ctx context.Context, visibilityTimeout time.Duration) (*Delivery, error)
	// Complete removes the entry; an unknown receipt is a silent no-op.
	Complete(ctx context.Context, receipt string) error
	// Abandon makes the entry immediately visible again.
	Abandon(ctx context.Context, receipt string) error
}

type entry struct {
	Message   JobMessage `json:"message"`
	Receipt   string     `json:"receipt"`
	VisibleAt int64      `json:"visibleAt"` // epoch ms
	Attempts  int        `json:"attempts"`
}

// MemoryQueue is the in-process backend.
type MemoryQueue struct {
	mu    sync.Mutex
	items []entry
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg JobMessage, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, entry{
		Message:   msg,
		Receipt:   uuid.NewString(),
		VisibleAt: time.Now().Add(delay).UnixMilli(),
	})
	log.Debugf("[queue] enqueued request %s, size=%d", msg.RequestID, len(q.items))
	return nil
}

func (q *MemoryQueue) Dequeue(_ context.Context, visibilityTimeout time.Duration) (*Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d := lease(q.items, visibilityTimeout)
	return d, nil
}

func (q *MemoryQueue) Complete(_ context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].Receipt == receipt {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *MemoryQueue) Abandon(_ context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].Receipt == receipt {
			q.items[i].VisibleAt = time.Now().UnixMilli()
			return nil
		}
	}
	return nil
}

// Size reports visible + leased entries, for diagnostics.
func (q *MemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// lease finds the first visible entry, bumps its attempt counter and
// extends its lease in place. Shared by the memory and file backends.
func lease(items []entry, visibilityTimeout time.Duration) *Delivery {
	if visibilityTimeout <= 0 {
		visibilityTimeout = DefaultVisibilityTimeout
	}
	now := time.Now().UnixMilli()
	for i := range items {
		if items[i].VisibleAt <= now {
			items[i].Attempts++
			items[i].VisibleAt = now + visibilityTimeout.Milliseconds()
			return &Delivery{
				Message:  items[i].Message,
				Receipt:  items[i].Receipt,
				Attempts: items[i].Attempts,
			}
		}
	}
	return nil
}
