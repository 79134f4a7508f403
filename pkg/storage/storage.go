/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package storage

import (
	"context"
	"io"
)

// DefaultContentType is used for blobs whose media type is unknown.
const DefaultContentType = "application/octet-stream"

// ObjectStore is the minimal destination-store capability the uploader
// needs. Implementations must be safe for concurrent use.
type ObjectStore interface {
	// Exists reports whether an object is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Put streams size bytes from r into the object under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Stat returns the stored size of the object under key.
	// The second return is false when the object does not exist.
	Stat(ctx context.Context, key string) (int64, bool, error)
}
