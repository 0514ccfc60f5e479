package repository

import (
	"context"

	"codybuddy/internal/domain"
)

// RoomRepository stores room records.
type RoomRepository interface {
	// EnsureExists creates the room if no record with this roomID exists yet.
	// created is true only when this call inserted the record.
	EnsureExists(ctx context.Context, roomID string) (created bool, err error)

	// FindByRoomID returns ErrRoomNotFound when the room was never joined.
	FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error)
}
