package repository

import (
	"context"

	"codybuddy/internal/domain"
)

// CodeRepository stores the single current CodeDocument of each room.
type CodeRepository interface {
	// FindByRoomID returns the room's document, or ErrCodeNotFound if nothing was ever written.
	FindByRoomID(ctx context.Context, roomID string) (*domain.CodeDocument, error)

	// Upsert applies the update atomically, inserting the document when missing.
	// Nil fields of the update keep their stored value (or the default on insert).
	Upsert(ctx context.Context, update domain.CodeUpdate) error
}
