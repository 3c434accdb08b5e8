package database

import (
	"gorm.io/gorm"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.AvailabilityRecord{},
		&models.PreWarmJob{},
	)
}
