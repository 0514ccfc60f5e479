package repository

import (
	"context"
	"time"
)

// Room event types published for auditing.
const (
	EventSnapshotSaved = "snapshot.saved"
	EventRoomReverted  = "room.reverted"
)

// RoomEvent is an audit record of a state-changing room operation.
type RoomEvent struct {
	Type       string    `json:"type"`
	RoomID     string    `json:"room_id"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Author     string    `json:"author,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher ships room events to a message broker. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event RoomEvent) error
}
