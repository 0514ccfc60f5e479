package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
)

// GormSnapshotRepository is the GORM implementation of repository.SnapshotRepository
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSnapshotRepository")
	}
	return &GormSnapshotRepository{db: db}
}

// Create inserts a new snapshot. Snapshots are write-once so Create, never Save.
func (r *GormSnapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	err := r.db.WithContext(ctx).Create(snapshot).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: failed to save snapshot (room %s): %w", snapshot.RoomID, err)
	}
	return nil
}

// ListByRoom returns every snapshot of the room ordered by created_at DESC
func (r *GormSnapshotRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Snapshot, error) {
	snapshots := make([]domain.Snapshot, 0)
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list snapshots for room %s: %w", roomID, err)
	}
	return snapshots, nil
}

// FindByID fetches one snapshot
func (r *GormSnapshotRepository) FindByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("gorm: failed to get snapshot %s: %w", id, err)
	}
	return &snapshot, nil
}
