package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository/mocks"
	"codybuddy/internal/tasks"
)

func TestCodeUpsertHandler_Persists(t *testing.T) {
	codeRepo := new(mocks.CodeRepository)
	update := domain.NewContentUpdate("r1", "x = 1", "python")
	codeRepo.On("Upsert", mock.Anything, update).Return(nil).Once()

	task, err := tasks.NewCodeUpsertTask(update)
	require.NoError(t, err)

	err = NewCodeUpsertHandler(codeRepo).ProcessTask(context.Background(), task)
	assert.NoError(t, err)
	codeRepo.AssertExpectations(t)
}

func TestCodeUpsertHandler_StoreErrorIsRetried(t *testing.T) {
	codeRepo := new(mocks.CodeRepository)
	codeRepo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("db down"))

	task, err := tasks.NewCodeUpsertTask(domain.NewContentUpdate("r1", "x", ""))
	require.NoError(t, err)

	err = NewCodeUpsertHandler(codeRepo).ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestCodeUpsertHandler_BadPayloadSkipsRetry(t *testing.T) {
	codeRepo := new(mocks.CodeRepository)

	err := NewCodeUpsertHandler(codeRepo).ProcessTask(context.Background(), asynq.NewTask(tasks.TypeCodeUpsert, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	codeRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

// fakeEnqueuer records tasks. Enqueues for slowRoom wait for release (or the deadline).
type fakeEnqueuer struct {
	mu       sync.Mutex
	tasks    []*asynq.Task
	err      error
	closed   int
	slowRoom string
	release  chan struct{}
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	payload, err := tasks.ParseCodeUpsert(task)
	if err != nil {
		return nil, err
	}
	if f.slowRoom != "" && payload.Update.RoomID == f.slowRoom {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeEnqueuer) rooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rooms []string
	for _, task := range f.tasks {
		payload, _ := tasks.ParseCodeUpsert(task)
		rooms = append(rooms, payload.Update.RoomID)
	}
	return rooms
}

func (f *fakeEnqueuer) last() tasks.CodeUpsertPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, _ := tasks.ParseCodeUpsert(f.tasks[len(f.tasks)-1])
	return payload
}

func flushWriter(t *testing.T, w *TaskWriter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Flush(ctx))
}

func TestTaskWriter_LastUpdateIsQueuedLast(t *testing.T) {
	client := &fakeEnqueuer{}
	w := NewTaskWriter(client, time.Second)

	w.Enqueue(domain.NewContentUpdate("r1", "a", "go"))
	w.Enqueue(domain.NewContentUpdate("r1", "b", "go"))
	flushWriter(t, w)

	require.NotEmpty(t, client.rooms())
	assert.Equal(t, "b", *client.last().Update.Content)
}

func TestTaskWriter_SlowRedisDoesNotBlockEnqueue(t *testing.T) {
	client := &fakeEnqueuer{slowRoom: "r1", release: make(chan struct{})}
	w := NewTaskWriter(client, 5*time.Second)

	start := time.Now()
	w.Enqueue(domain.NewContentUpdate("r1", "a", "go"))
	w.Enqueue(domain.NewContentUpdate("r2", "b", "go"))
	assert.True(t, time.Since(start) < 100*time.Millisecond, "Enqueue waited on Redis")

	// r2 reaches the queue while r1 is still stuck
	require.Eventually(t, func() bool {
		rooms := client.rooms()
		return len(rooms) == 1 && rooms[0] == "r2"
	}, time.Second, 5*time.Millisecond)

	close(client.release)
	flushWriter(t, w)
	assert.ElementsMatch(t, []string{"r1", "r2"}, client.rooms())
}

func TestTaskWriter_EnqueueTimeoutIsSwallowed(t *testing.T) {
	client := &fakeEnqueuer{slowRoom: "r1", release: make(chan struct{})}
	w := NewTaskWriter(client, 20*time.Millisecond)

	w.Enqueue(domain.NewContentUpdate("r1", "a", ""))
	flushWriter(t, w)

	assert.Empty(t, client.rooms())
	_, pending := w.Pending("r1")
	assert.False(t, pending)
}

func TestTaskWriter_EnqueueErrorIsSwallowed(t *testing.T) {
	client := &fakeEnqueuer{err: errors.New("redis down")}
	w := NewTaskWriter(client, time.Second)

	assert.NotPanics(t, func() { w.Enqueue(domain.NewContentUpdate("r1", "a", "")) })
	flushWriter(t, w)
	assert.Empty(t, client.rooms())
}

func TestTaskWriter_CloseDrainsThenClosesOnce(t *testing.T) {
	client := &fakeEnqueuer{}
	w := NewTaskWriter(client, time.Second)

	w.Enqueue(domain.NewContentUpdate("r1", "a", ""))
	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, 1, client.closed)
	assert.Equal(t, []string{"r1"}, client.rooms())

	w.Enqueue(domain.NewContentUpdate("r1", "late", ""))
	assert.Equal(t, []string{"r1"}, client.rooms())
}

func TestNewServeMux_RoutesCodeUpsert(t *testing.T) {
	codeRepo := new(mocks.CodeRepository)
	codeRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

	task, err := tasks.NewCodeUpsertTask(domain.NewContentUpdate("r1", "a", ""))
	require.NoError(t, err)

	require.NoError(t, NewServeMux(codeRepo).ProcessTask(context.Background(), task))
	codeRepo.AssertExpectations(t)
}
