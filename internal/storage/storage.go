// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package storage reads and writes the migration's blobs. The Client
// interface covers exactly what the batch driver needs; the Azure
// implementation backs it in production and tests substitute fakes.
package storage

import (
	"context"
	"time"
)

// ObjectInfo describes one stored blob.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Client is the blob store surface the migration uses.
type Client interface {
	// List returns every blob under prefix, in lexical key order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Download writes the blob's content to the local file at path.
	Download(ctx context.Context, key, path string) error

	// Upload stores the local file at path under key. When overwrite is
	// false and the blob already exists, the error wraps ErrBlobExists.
	Upload(ctx context.Context, path, key string, overwrite bool) error

	// Exists reports whether a blob with the given key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
