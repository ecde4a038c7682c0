package models

import "time"

// RateLimitCounter is one fixed-window counter row. Rows are created lazily
// on the first hit of a window and are garbage-collected after reset_at.
// The composite key makes the increment-and-fetch upsert race-free.
type RateLimitCounter struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	IdentityKey   string `gorm:"type:text;not null;uniqueIndex:idx_rate_limit_window,priority:1"` // Rate-limit partition key ("key:<id>" or "user:<id>").
	Bucket        string `gorm:"type:varchar(64);not null;uniqueIndex:idx_rate_limit_window,priority:2"` // Policy bucket name.
	WindowSeconds int64  `gorm:"not null;uniqueIndex:idx_rate_limit_window,priority:3"`                  // Window granularity in seconds.
	WindowStart   int64  `gorm:"not null;uniqueIndex:idx_rate_limit_window,priority:4"`                  // Window start epoch seconds.

	Count   int64     `gorm:"not null;default:0"` // Post-increment hit count; only grows within a window.
	ResetAt time.Time `gorm:"not null;index"`     // Window end; row is dead after this.
}
