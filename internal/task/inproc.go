package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdf-search/internal/retry"
)

// ErrQueueFull is returned when the bounded task buffer has no room.
// Callers surface this as a server error rather than blocking the
// request path.
var ErrQueueFull = errors.New("task queue is full")

// InProc is a bounded in-process queue. Worker goroutines started via
// Worker form the worker pool; the channel depth bounds how many tasks
// may wait for a free worker.
type InProc struct {
	log    *slog.Logger
	depth  int
	onDrop DropHandler

	mu       sync.Mutex
	channels map[Type]chan Task
}

// NewInProc creates an in-process queue with the given buffer depth.
func NewInProc(log *slog.Logger, depth int) *InProc {
	if depth <= 0 {
		depth = 64
	}
	return &InProc{log: log, depth: depth, channels: make(map[Type]chan Task)}
}

func (q *InProc) channel(taskType Type) chan Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.channels[taskType]
	if !ok {
		ch = make(chan Task, q.depth)
		q.channels[taskType] = ch
	}
	return ch
}

// Enqueue submits a task without blocking; a full buffer is an error.
func (q *InProc) Enqueue(_ context.Context, task Task) error {
	if task.Type == "" {
		return errors.New("task type required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	select {
	case q.channel(task.Type) <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Worker consumes tasks of the given type until ctx is cancelled. Run it
// once per pool slot.
func (q *InProc) Worker(ctx context.Context, taskType Type, handler Handler) error {
	ch := q.channel(taskType)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-ch:
			q.handleTask(ctx, t, handler)
		}
	}
}

func (q *InProc) handleTask(ctx context.Context, t Task, handler Handler) {
	if wait := time.Until(t.NotBefore); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	if err := handler(ctx, t); err != nil {
		q.retryTask(ctx, t, err)
	}
}

// OnDrop registers a callback for abandoned tasks. Set it before
// starting workers.
func (q *InProc) OnDrop(fn DropHandler) { q.onDrop = fn }

func (q *InProc) retryTask(ctx context.Context, t Task, handlerErr error) {
	t.Attempts++
	if t.MaxAttempts == 0 {
		t.MaxAttempts = 5
	}
	if t.Attempts >= t.MaxAttempts {
		q.log.Error("task permanently failed", "id", t.ID, "type", t.Type, "attempts", t.Attempts, "err", handlerErr)
		q.drop(ctx, t, handlerErr)
		return
	}
	t.NotBefore = time.Now().Add(retry.ExponentialBackoff(t.Attempts, time.Second, time.Minute))
	if err := q.Enqueue(ctx, t); err != nil {
		q.log.Error("failed to re-enqueue task after failure", "id", t.ID, "type", t.Type, "original_err", handlerErr, "enqueue_err", err)
		q.drop(ctx, t, handlerErr)
	}
}

func (q *InProc) drop(ctx context.Context, t Task, err error) {
	if q.onDrop != nil {
		q.onDrop(ctx, t, err)
	}
}
