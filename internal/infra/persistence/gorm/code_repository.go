package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
)

// GormCodeRepository is the GORM implementation of repository.CodeRepository
type GormCodeRepository struct {
	db *gorm.DB
}

// NewGormCodeRepository creates a GormCodeRepository
func NewGormCodeRepository(db *gorm.DB) *GormCodeRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCodeRepository")
	}
	return &GormCodeRepository{db: db}
}

// FindByRoomID returns the current document of a room
func (r *GormCodeRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.CodeDocument, error) {
	var doc domain.CodeDocument
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCodeNotFound
		}
		return nil, fmt.Errorf("gorm: find code for room '%s': %w", roomID, err)
	}
	return &doc, nil
}

// Upsert writes the update in one statement:
// INSERT ... ON CONFLICT (room_id) DO UPDATE on sqlite, ON DUPLICATE KEY UPDATE on MySQL.
// Only the columns carried by the update are overwritten on conflict.
func (r *GormCodeRepository) Upsert(ctx context.Context, update domain.CodeUpdate) error {
	if update.RoomID == "" {
		return fmt.Errorf("gorm: upsert code: empty room id")
	}

	doc := domain.CodeDocument{
		RoomID:    update.RoomID,
		Language:  domain.DefaultLanguage,
		UpdatedAt: time.Now().UTC(),
	}
	columns := []string{"updated_at"}
	if update.Content != nil {
		doc.Content = *update.Content
		columns = append(columns, "content")
	}
	if update.Language != nil {
		doc.Language = *update.Language
		columns = append(columns, "language")
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(&doc).Error
	if err != nil {
		return fmt.Errorf("gorm: upsert code for room '%s': %w", update.RoomID, err)
	}
	return nil
}
