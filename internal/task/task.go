// Package task schedules ingestion work off the request path. The
// in-process provider is a bounded worker pool; the NATS provider spreads
// the same tasks across processes.
package task

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pdf-search/internal/retry"
)

// Type enumerates supported task categories.
type Type string

// TypeExtract is the extraction-and-index step that runs after upload.
const TypeExtract Type = "extract"

// Task is a unit of background work. There is no join handle: the
// submitter receives no completion signal.
type Task struct {
	ID          uuid.UUID
	Type        Type
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType Type, handler Handler) error
}

// DropHandler is invoked when a queue abandons a task: attempts
// exhausted, or a retry could not be re-enqueued. It gives the submitter
// a chance to record terminal state for work that will never run again.
type DropHandler func(ctx context.Context, task Task, err error)

// DropNotifier is implemented by queues that report abandoned tasks.
// Register the handler before starting workers.
type DropNotifier interface {
	OnDrop(fn DropHandler)
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base, 0)):
		}
	}
	return nil
}
