package blob

import (
	"context"
	"fmt"
)

const (
	TypeMemory     = "memory"
	TypeFileSystem = "filesystem"
	TypeS3         = "s3"
)

// Config selects and configures a backend. Only the fields for Type are read.
type Config struct {
	Type string
	Root string
	S3   S3Options
}

// NewFromConfig creates a Store for cfg.Type.
func NewFromConfig(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeFileSystem, "":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem blob store requires root to be set")
		}
		return NewFileSystemStore(cfg.Root)
	case TypeS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
