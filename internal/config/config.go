// Package config loads server and CLI settings from a TOML file, environment
// variables and built-in defaults, in increasing order of precedence:
// defaults, file, environment. Command-line flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/himanishpuri/SignVault/pkg/signvault"
	"github.com/himanishpuri/SignVault/pkg/signvault/blob"
)

type Config struct {
	LogLevel string         `toml:"log_level"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Blob     BlobConfig     `toml:"blob"`
	Upload   UploadConfig   `toml:"upload"`
	Lookup   LookupConfig   `toml:"lookup"`
	Stream   StreamConfig   `toml:"stream"`
	Import   ImportConfig   `toml:"import"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	LogRequests    bool     `toml:"log_requests"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// BlobConfig uses a tagged union: Type selects which other fields apply.
type BlobConfig struct {
	Type string `toml:"type"` // "filesystem", "s3" or "memory"

	// filesystem
	Root string `toml:"root,omitempty"`

	// s3
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3PathStyle       bool   `toml:"s3_path_style,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

type UploadConfig struct {
	Timeout         time.Duration `toml:"timeout"`
	MaxClipBytes    int64         `toml:"max_clip_bytes"`
	DefaultMimeType string        `toml:"default_mime_type"`
}

type LookupConfig struct {
	CacheSize int           `toml:"cache_size"`
	CacheTTL  time.Duration `toml:"cache_ttl"`
}

type StreamConfig struct {
	HistorySize   int           `toml:"history_size"`
	ConsumerQueue int           `toml:"consumer_queue"`
	WriteTimeout  time.Duration `toml:"write_timeout"`
	PingInterval  time.Duration `toml:"ping_interval"`
}

type ImportConfig struct {
	WorkDir string `toml:"work_dir"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:           3000,
			AllowedOrigins: []string{"*"},
			LogRequests:    true,
		},
		Database: DatabaseConfig{Path: signvault.DefaultDBPath},
		Blob: BlobConfig{
			Type: blob.TypeFileSystem,
			Root: signvault.DefaultBlobRoot,
		},
		Upload: UploadConfig{
			Timeout:         signvault.DefaultUploadTimeout,
			MaxClipBytes:    signvault.DefaultMaxClipBytes,
			DefaultMimeType: signvault.DefaultMimeType,
		},
		Lookup: LookupConfig{
			CacheSize: signvault.DefaultLookupCacheSize,
			CacheTTL:  signvault.DefaultLookupCacheTTL,
		},
		Stream: StreamConfig{
			HistorySize:   signvault.DefaultHistorySize,
			ConsumerQueue: signvault.DefaultConsumerQueue,
			WriteTimeout:  10 * time.Second,
			PingInterval:  30 * time.Second,
		},
	}
}

// Read decodes r over cfg, so keys absent from r keep their current values.
func Read(r io.Reader, cfg *Config) error {
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Load builds a Config from defaults, the optional file at path and the
// process environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()
		if err := Read(f, cfg); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SIGNVAULT_* variables and LOG_LEVEL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("SIGNVAULT_PORT"); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid SIGNVAULT_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("SIGNVAULT_ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = SplitList(v)
	}
	str("SIGNVAULT_DB_PATH", &c.Database.Path)
	str("SIGNVAULT_BLOB_TYPE", &c.Blob.Type)
	str("SIGNVAULT_BLOB_ROOT", &c.Blob.Root)
	str("SIGNVAULT_S3_BUCKET", &c.Blob.S3Bucket)
	str("SIGNVAULT_S3_REGION", &c.Blob.S3Region)
	str("SIGNVAULT_S3_ENDPOINT", &c.Blob.S3Endpoint)
	str("LOG_LEVEL", &c.LogLevel)
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	switch c.Blob.Type {
	case blob.TypeFileSystem:
		if c.Blob.Root == "" {
			return errors.New("filesystem blob store requires root to be set")
		}
	case blob.TypeS3:
		if c.Blob.S3Bucket == "" {
			return errors.New("s3 blob store requires s3_bucket to be set")
		}
	case blob.TypeMemory:
	default:
		return fmt.Errorf("unknown blob type: %q", c.Blob.Type)
	}
	if c.Upload.Timeout <= 0 {
		return errors.New("upload timeout must be positive")
	}
	if c.Upload.MaxClipBytes <= 0 {
		return errors.New("max_clip_bytes must be positive")
	}
	if c.Lookup.CacheSize < 0 {
		return errors.New("lookup cache_size must not be negative")
	}
	if c.Stream.HistorySize <= 0 {
		return errors.New("stream history_size must be positive")
	}
	if c.Stream.ConsumerQueue <= 0 {
		return errors.New("stream consumer_queue must be positive")
	}
	if c.Stream.WriteTimeout <= 0 || c.Stream.PingInterval <= 0 {
		return errors.New("stream write_timeout and ping_interval must be positive")
	}
	return nil
}

// BlobStoreConfig converts the blob section for blob.NewFromConfig.
func (c *Config) BlobStoreConfig() blob.Config {
	return blob.Config{
		Type: c.Blob.Type,
		Root: c.Blob.Root,
		S3: blob.S3Options{
			Bucket:          c.Blob.S3Bucket,
			Prefix:          c.Blob.S3Prefix,
			Region:          c.Blob.S3Region,
			Endpoint:        c.Blob.S3Endpoint,
			UsePathStyle:    c.Blob.S3PathStyle,
			AccessKeyID:     c.Blob.S3AccessKeyID,
			SecretAccessKey: c.Blob.S3SecretAccessKey,
		},
	}
}

// ServiceOptions translates the config into service options. The blob store
// is built separately because opening it may need network access.
func (c *Config) ServiceOptions(store blob.Store, log signvault.Logger) []signvault.Option {
	return []signvault.Option{
		signvault.WithDBPath(c.Database.Path),
		signvault.WithBlobStore(store),
		signvault.WithLogger(log),
		signvault.WithUploadTimeout(c.Upload.Timeout),
		signvault.WithMaxClipBytes(c.Upload.MaxClipBytes),
		signvault.WithDefaultMimeType(c.Upload.DefaultMimeType),
		signvault.WithHistorySize(c.Stream.HistorySize),
		signvault.WithConsumerQueue(c.Stream.ConsumerQueue),
		signvault.WithLookupCache(c.Lookup.CacheSize, c.Lookup.CacheTTL),
	}
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
