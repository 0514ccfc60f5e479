package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
)

// GormRoomRepository is the GORM implementation of repository.RoomRepository
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// EnsureExists inserts the room unless a record with the same room_id is already there.
// The unique index on room_id makes concurrent first joins collapse into one record.
func (r *GormRoomRepository) EnsureExists(ctx context.Context, roomID string) (bool, error) {
	room := domain.Room{RoomID: roomID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "room_id"}}, DoNothing: true}).
		Create(&room)
	if err := result.Error; err != nil {
		if isDuplicateEntryError(err) {
			// lost the race against another joiner, the room exists
			return false, nil
		}
		return false, fmt.Errorf("gorm: ensure room '%s': %w", roomID, err)
	}
	return result.RowsAffected > 0, nil
}

// FindByRoomID looks a room up by its client-facing id
func (r *GormRoomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room '%s': %w", roomID, err)
	}
	return &room, nil
}
