package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"codybuddy/internal/domain"
)

// MigrateDB creates or updates the rooms, code_documents and snapshots tables.
// The unique indexes on room_id back the create-if-absent and upsert statements.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	if err := db.AutoMigrate(
		&domain.Room{},
		&domain.CodeDocument{},
		&domain.Snapshot{},
	); err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
