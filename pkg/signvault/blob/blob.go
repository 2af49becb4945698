// Package blob provides the byte storage backends behind the content store.
//
// A Store holds opaque payloads keyed by clip ID. Metadata (owner, label,
// mime type, checksum) lives in the catalog, not here.
package blob

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob not found")

type Store interface {
	// Put stores size bytes read from r under key. Writes are atomic: a
	// concurrent Get sees either nothing or the whole payload.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the payload stored under key to w. It returns an error
	// wrapping ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string, w io.Writer) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ValidateSetup verifies that the backend is reachable and writable.
	ValidateSetup(ctx context.Context) error

	// Name identifies the backend in logs and health output.
	Name() string
}
