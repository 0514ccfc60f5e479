package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"codybuddy/internal/domain"
	"codybuddy/internal/service"
	"codybuddy/internal/tasks"
)

// TaskEnqueuer is the part of *asynq.Client the TaskWriter needs
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// TaskWriter hands code updates to the asynq queue instead of writing them in-process.
// Updates are coalesced per room the same way the inline writer does it, and Redis is only
// called from the per-room drain goroutines, so Enqueue never waits on Redis.
type TaskWriter struct {
	*service.CoalescingWriter
	client    TaskEnqueuer
	closeOnce sync.Once
}

// NewTaskWriter creates a TaskWriter that owns client. enqueueTimeout bounds each call
// to Redis.
func NewTaskWriter(client TaskEnqueuer, enqueueTimeout time.Duration) *TaskWriter {
	if client == nil {
		panic("asynq client cannot be nil for TaskWriter")
	}
	return &TaskWriter{
		CoalescingWriter: service.NewCoalescingWriter(taskSink{client: client}, enqueueTimeout),
		client:           client,
	}
}

// Close drains pending updates into the queue, then closes the asynq client. Tasks already
// queued stay in Redis for the worker.
func (w *TaskWriter) Close(ctx context.Context) error {
	err := w.CoalescingWriter.Close(ctx)
	w.closeOnce.Do(func() {
		if closeErr := w.client.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	})
	return err
}

// taskSink turns an upsert into a code:upsert task
type taskSink struct {
	client TaskEnqueuer
}

func (s taskSink) Upsert(ctx context.Context, update domain.CodeUpdate) error {
	task, err := tasks.NewCodeUpsertTask(update)
	if err != nil {
		return fmt.Errorf("build code upsert task: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue code upsert task: %w", err)
	}
	logrus.WithFields(logrus.Fields{"room_id": update.RoomID, "task_id": info.ID}).Debug("Code upsert task enqueued")
	return nil
}
