package db

import (
	"fmt"

	"github.com/axionslab/datavault/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.Session{},
		&models.RateLimitCounter{},
		&models.DownloadToken{},
		&models.Upload{},
		&models.RequestLog{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	return nil
}
