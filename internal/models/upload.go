package models

import (
	"time"

	"gorm.io/datatypes"
)

// Upload stores metadata for a CSV file held in object storage. The file
// bytes themselves never touch the database.
type Upload struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   uint64 `gorm:"not null;index"` // Owning user ID.
	Username string `gorm:"type:text"`      // Owner login name at upload time.

	Filename  string `gorm:"type:text;not null"`       // Original client filename.
	ObjectKey string `gorm:"type:text;not null;index"` // Blob store key.
	FileHash  string `gorm:"type:text;not null;index"` // SHA-256 of file content, dedupe key.
	FileSize  int64  `gorm:"not null"`                 // Size in bytes.

	RowCount    int            `gorm:"not null"`   // Parsed CSV row count.
	ColumnCount int            `gorm:"not null"`   // Parsed CSV column count.
	Columns     datatypes.JSON `gorm:"type:jsonb"` // Parsed CSV header names.

	UploadedAt time.Time `gorm:"not null;autoCreateTime"` // Upload timestamp.
}
