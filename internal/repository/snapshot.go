package repository

import (
	"context"

	"codybuddy/internal/domain"
)

// SnapshotRepository is the append-only snapshot store.
type SnapshotRepository interface {
	// Create appends a snapshot. Snapshots are never updated afterwards.
	Create(ctx context.Context, snapshot *domain.Snapshot) error

	// ListByRoom returns the room's snapshots, newest first.
	ListByRoom(ctx context.Context, roomID string) ([]domain.Snapshot, error)

	// FindByID returns ErrSnapshotNotFound for unknown ids.
	FindByID(ctx context.Context, id string) (*domain.Snapshot, error)
}
