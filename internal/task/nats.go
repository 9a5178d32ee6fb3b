package task

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"pdf-search/internal/retry"
)

// NewNATS constructs a thin NATS-based queue for multi-process
// deployments.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return &natsQueue{log: log, nc: nc}
}

type natsQueue struct {
	log    *slog.Logger
	nc     *nats.Conn
	onDrop DropHandler
}

// OnDrop registers a callback for abandoned tasks. Set it before
// starting workers.
func (q *natsQueue) OnDrop(fn DropHandler) { q.onDrop = fn }

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.Type == "" {
		return errors.New("task type required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish("ingest."+string(task.Type), body)
}

func (q *natsQueue) Worker(ctx context.Context, taskType Type, handler Handler) error {
	subject := "ingest." + string(taskType)
	group := "workers-" + string(taskType)
	sub, err := q.nc.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		q.handleMessage(ctx, msg, handler)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (q *natsQueue) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	var t Task
	if err := json.Unmarshal(msg.Data, &t); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}

	if t.NotBefore.After(time.Now()) {
		time.Sleep(time.Until(t.NotBefore))
	}

	if err := handler(ctx, t); err != nil {
		q.retryTask(ctx, t, err)
	}
}

func (q *natsQueue) retryTask(ctx context.Context, t Task, handlerErr error) {
	t.Attempts++
	if t.MaxAttempts == 0 {
		t.MaxAttempts = 5
	}

	if t.Attempts < t.MaxAttempts {
		t.NotBefore = time.Now().Add(retry.ExponentialBackoff(t.Attempts, time.Second, time.Minute))
		if err := q.Enqueue(ctx, t); err != nil {
			q.log.Error("failed to re-enqueue task after failure", "id", t.ID, "type", t.Type, "original_err", handlerErr, "enqueue_err", err)
			q.drop(ctx, t, handlerErr)
		}
	} else {
		q.log.Error("task permanently failed", "id", t.ID, "type", t.Type, "original_err", handlerErr)
		q.drop(ctx, t, handlerErr)
	}
}

func (q *natsQueue) drop(ctx context.Context, t Task, err error) {
	if q.onDrop != nil {
		q.onDrop(ctx, t, err)
	}
}
