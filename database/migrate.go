package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/utils"
)

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
