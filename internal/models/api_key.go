package models

import "time"

// APIKey stores a named per-user API key. Only the keyed hash of the raw
// key is persisted; the raw key is returned to the caller exactly once.
type APIKey struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Owning user.

	Name    string `gorm:"type:text"`                      // Display name.
	KeyHash string `gorm:"type:text;not null;uniqueIndex"` // HMAC-SHA256 of the raw key.
	Last4   string `gorm:"type:varchar(4);not null"`       // Last four raw characters, display only.

	LastUsedAt *time.Time `gorm:""`      // Last successful verification.
	RevokedAt  *time.Time `gorm:"index"` // Soft tombstone; never deleted.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Revoked reports whether the key has been tombstoned.
func (k *APIKey) Revoked() bool {
	return k != nil && k.RevokedAt != nil
}
