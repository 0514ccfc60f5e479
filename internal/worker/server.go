package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"codybuddy/internal/repository"
	"codybuddy/internal/tasks"
)

// WorkerServer wraps the asynq server that drains the code write queue
type WorkerServer struct {
	server   *asynq.Server
	log      *logrus.Entry
	codeRepo repository.CodeRepository
}

// NewWorkerServer creates a WorkerServer. It runs a single worker so code writes for a room
// are applied in the order they were queued.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, codeRepo repository.CodeRepository, logger *logrus.Logger) *WorkerServer {
	if codeRepo == nil {
		panic("CodeRepository cannot be nil for WorkerServer")
	}
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				tasks.QueueCodeWrites: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:   server,
		log:      logEntry,
		codeRepo: codeRepo,
	}
}

// NewServeMux returns the mux with every task handler registered
func NewServeMux(codeRepo repository.CodeRepository) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeCodeUpsert, NewCodeUpsertHandler(codeRepo))
	return mux
}

// Start runs the server until Shutdown. Call it in its own goroutine.
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(NewServeMux(ws.codeRepo)); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.WithError(err).Error("Worker server stopped unexpectedly")
			return
		}
	}
	ws.log.Info("Worker server stopped")
}

// Shutdown waits for the in-flight task and stops the server
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete")
}
