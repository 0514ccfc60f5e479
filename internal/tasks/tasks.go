package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"codybuddy/internal/domain"
)

// Task types
const (
	TypeCodeUpsert = "code:upsert" // persist a CodeUpdate
)

// QueueCodeWrites is the queue code upserts go to. The worker consumes it with a single
// goroutine so updates are applied in enqueue order.
const QueueCodeWrites = "code-writes"

// CodeUpsertPayload carries one pending CodeDocument write
type CodeUpsertPayload struct {
	Update domain.CodeUpdate `json:"update"`
}

// NewCodeUpsertTask builds the task that persists update
func NewCodeUpsertTask(update domain.CodeUpdate) (*asynq.Task, error) {
	if update.RoomID == "" {
		return nil, fmt.Errorf("code upsert task needs a room id")
	}
	payload, err := json.Marshal(CodeUpsertPayload{Update: update})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCodeUpsert, payload, asynq.Queue(QueueCodeWrites)), nil
}

// ParseCodeUpsert decodes the payload of a TypeCodeUpsert task
func ParseCodeUpsert(t *asynq.Task) (CodeUpsertPayload, error) {
	var payload CodeUpsertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, err
	}
	if payload.Update.RoomID == "" {
		return payload, fmt.Errorf("code upsert payload has no room id")
	}
	return payload, nil
}
