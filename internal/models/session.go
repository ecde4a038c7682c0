package models

import "time"

// Session stores a server-side login session. The raw session token is
// handed to the client once; only its keyed hash is persisted.
type Session struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Owning user.

	TokenHash string `gorm:"type:text;not null;uniqueIndex"` // HMAC-SHA256 of the raw token.

	ExpiresAt  time.Time  `gorm:"not null;index"` // Hard expiry; never resurrected.
	LastUsedAt *time.Time `gorm:""`               // Last successful verification.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}
