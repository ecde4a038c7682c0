package models

import "time"

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Bcrypt password hash.

	// LegacyAPIKey holds the single raw API key issued by pre-multi-key
	// deployments. New keys live in api_keys with only a hash persisted.
	LegacyAPIKey *string `gorm:"type:text"`

	APIKeys  []APIKey  `gorm:"foreignKey:UserID"` // Related API keys.
	Sessions []Session `gorm:"foreignKey:UserID"` // Related sessions.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
