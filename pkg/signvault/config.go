package signvault

import (
	"time"

	"github.com/himanishpuri/SignVault/pkg/signvault/blob"
)

const (
	DefaultDBPath          = "signvault.sqlite3"
	DefaultBlobRoot        = "data/clips"
	DefaultUploadTimeout   = 30 * time.Second
	DefaultMaxClipBytes    = 100 << 20
	DefaultMimeType        = "video/mp4"
	DefaultHistorySize     = 100
	DefaultConsumerQueue   = 256
	DefaultLookupCacheSize = 128
	DefaultLookupCacheTTL  = 10 * time.Minute
)

type Config struct {
	DBPath          string
	BlobRoot        string
	BlobStore       blob.Store
	Catalog         Catalog
	Logger          Logger
	UploadTimeout   time.Duration
	MaxClipBytes    int64
	DefaultMimeType string
	HistorySize     int
	ConsumerQueue   int
	LookupCacheSize int
	LookupCacheTTL  time.Duration
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithBlobRoot stores clip payloads on the local filesystem under dir.
// Ignored when WithBlobStore is also given.
func WithBlobRoot(dir string) Option {
	return func(c *Config) {
		c.BlobRoot = dir
	}
}

func WithBlobStore(store blob.Store) Option {
	return func(c *Config) {
		c.BlobStore = store
	}
}

// WithCatalog replaces the SQLite catalog. The service does not close a
// catalog supplied this way.
func WithCatalog(catalog Catalog) Option {
	return func(c *Config) {
		c.Catalog = catalog
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithUploadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.UploadTimeout = d
	}
}

func WithMaxClipBytes(n int64) Option {
	return func(c *Config) {
		c.MaxClipBytes = n
	}
}

func WithDefaultMimeType(mime string) Option {
	return func(c *Config) {
		c.DefaultMimeType = mime
	}
}

func WithHistorySize(n int) Option {
	return func(c *Config) {
		c.HistorySize = n
	}
}

func WithConsumerQueue(n int) Option {
	return func(c *Config) {
		c.ConsumerQueue = n
	}
}

// WithLookupCache sizes the decoded-clip cache used by Find. A size of zero
// disables caching.
func WithLookupCache(size int, ttl time.Duration) Option {
	return func(c *Config) {
		c.LookupCacheSize = size
		c.LookupCacheTTL = ttl
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:          DefaultDBPath,
		BlobRoot:        DefaultBlobRoot,
		UploadTimeout:   DefaultUploadTimeout,
		MaxClipBytes:    DefaultMaxClipBytes,
		DefaultMimeType: DefaultMimeType,
		HistorySize:     DefaultHistorySize,
		ConsumerQueue:   DefaultConsumerQueue,
		LookupCacheSize: DefaultLookupCacheSize,
		LookupCacheTTL:  DefaultLookupCacheTTL,
	}
}
