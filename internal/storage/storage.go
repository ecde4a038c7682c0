// Package storage wraps the S3-compatible object store. The rest of the
// system treats it as an opaque blob store keyed by string.
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// BlobStore is the object store collaborator.
type BlobStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error
	Delete(ctx context.Context, key string) error
	// PresignGet mints a short-lived retrieval URL for the key.
	PresignGet(ctx context.Context, key string) (string, error)
}

// ObjectKey builds the blob key for a new user upload.
func ObjectKey(userID uint64) string {
	return fmt.Sprintf("users/%d/%s.csv", userID, uuid.NewString())
}
