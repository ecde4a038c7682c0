package models

import "time"

// RequestLog records one authenticated request for auditing.
type RequestLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Timestamp time.Time `gorm:"not null;index"` // Request completion time.

	UserID   uint64  `gorm:"not null;index"` // Authenticated user ID.
	APIKeyID *string `gorm:"type:text"`      // API key identity when the key scheme was used.

	Method     string `gorm:"type:varchar(16);not null"` // HTTP method.
	Path       string `gorm:"type:text;not null"`        // Request path.
	StatusCode int    `gorm:"not null"`                  // Response status.
	LatencyMS  int64  `gorm:"not null"`                  // Handler latency in milliseconds.

	UploadID *uint64 `gorm:"index"`     // Correlated upload, when the route carries one.
	IP       string  `gorm:"type:text"` // Client IP.
	UserAgent string `gorm:"type:text"` // Client user agent.
}
