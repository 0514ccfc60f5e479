package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"codybuddy/internal/repository"
	"codybuddy/internal/tasks"
)

// CodeUpsertHandler applies queued CodeDocument writes
type CodeUpsertHandler struct {
	codeRepo repository.CodeRepository
}

// NewCodeUpsertHandler creates the handler
func NewCodeUpsertHandler(codeRepo repository.CodeRepository) *CodeUpsertHandler {
	if codeRepo == nil {
		panic("CodeRepository cannot be nil for CodeUpsertHandler")
	}
	return &CodeUpsertHandler{codeRepo: codeRepo}
}

// ProcessTask implements asynq.Handler
func (h *CodeUpsertHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	retry, _ := asynq.GetRetryCount(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     retry,
	})

	payload, err := tasks.ParseCodeUpsert(t)
	if err != nil {
		logCtx.WithError(err).Error("Failed to decode code upsert payload")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithField("room_id", payload.Update.RoomID)

	if err := h.codeRepo.Upsert(ctx, payload.Update); err != nil {
		logCtx.WithError(err).Error("Failed to upsert code document")
		return fmt.Errorf("upsert code for room %s: %w", payload.Update.RoomID, err)
	}

	logCtx.Debug("Code document persisted")
	return nil
}
