package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a stored object.
type FileInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// KeyError records a per-key failure from a batch operation.
type KeyError struct {
	Key string
	Err error
}

// BatchDeleteResult aggregates the per-key outcomes of DeleteMany.
// Partial failure is reported here, never silently swallowed.
type BatchDeleteResult struct {
	Deleted []string
	Failed  []KeyError
}

// Storage defines the interface for object storage operations.
type Storage interface {
	// Write stores content from the reader with the given key.
	// The size parameter is the expected content size (-1 if unknown).
	// The contentType parameter specifies the MIME type of the content.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read retrieves content for the given key.
	// The caller is responsible for closing the returned ReadCloser.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content with the given key.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes the given keys best-effort and reports per-key
	// outcomes. A non-nil error means the batch could not be attempted at
	// all; per-key failures land in the result instead.
	DeleteMany(ctx context.Context, keys []string) (*BatchDeleteResult, error)

	// List returns information about all objects with keys starting with
	// the given prefix.
	List(ctx context.Context, prefix string) ([]FileInfo, error)

	// Exists checks if content with the given key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns a URL for accessing the content.
	// For local storage, this returns a serving path.
	// For S3, this returns a presigned URL valid for the specified duration.
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
