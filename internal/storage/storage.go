package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// PutObject uploads data under objectKey.
	PutObject(ctx context.Context, objectKey, contentType string, data []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/playing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}
