package signvault

import (
	"context"

	"github.com/himanishpuri/SignVault/pkg/models"
	"github.com/himanishpuri/SignVault/pkg/signvault/broadcast"
	"github.com/himanishpuri/SignVault/pkg/signvault/storage"
)

type Service interface {
	// Submit decodes a base64 upload and stores it. Failures are reported in
	// the result, never as a panic or a separate error.
	Submit(ctx context.Context, req UploadRequest) UploadResult

	// SubmitMedia stores an already-decoded payload. It applies the same
	// validation and effects as Submit.
	SubmitMedia(ctx context.Context, username, label string, data []byte, mimeType string) UploadResult

	// Find returns the most recently stored clip for word.
	Find(ctx context.Context, word string) LookupResult

	Leaderboard() []models.UserCount
	UserCount(username string) int64
	Labels() []models.LabelCount
	Acceleration() *broadcast.Channel
	Stats(ctx context.Context) (Stats, error)

	// Ping reports whether the catalog is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Catalog is the durable record of stored clips. *storage.DBClient
// implements it.
type Catalog interface {
	InsertClip(ctx context.Context, rec *storage.ClipRecord) error
	GetClip(ctx context.Context, id string) (*storage.ClipRecord, error)
	EachClip(ctx context.Context, batchSize int, fn func(storage.ClipRecord) error) error
	CountClips(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

var _ Catalog = (*storage.DBClient)(nil)
