package models

import "time"

// DownloadToken is a one-time, short-lived token redeemable for a presigned
// retrieval URL. Only the keyed hash of the raw token is persisted. The
// issued -> redeemed transition happens at most once via a conditional update.
type DownloadToken struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TokenHash string `gorm:"type:text;not null;uniqueIndex"` // HMAC-SHA256 of the raw token.

	UserID    uint64 `gorm:"not null;index"`      // Owning user ID.
	ObjectKey string `gorm:"type:text;not null;index"` // Target blob key.

	ExpiresAt time.Time `gorm:"not null;index"`         // Hard expiry.
	Used      bool      `gorm:"not null;default:false"` // Redemption flag; set once.

	UsedAt *time.Time `gorm:""`          // Redemption timestamp.
	UsedIP string     `gorm:"type:text"` // Client IP observed at redemption.

	BindIP        *string `gorm:"type:text"` // Optional bound client IP.
	BindUserAgent *string `gorm:"type:text"` // Optional bound user agent.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
