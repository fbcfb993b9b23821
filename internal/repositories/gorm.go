package repositories

import (
	"fmt"

	"dailyscrum/internal/models"

	"gorm.io/gorm"
)

// MigrateGORM creates or updates the tables backing the GORM repositories.
func MigrateGORM(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Title{}, &models.DailyScrumPost{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}
