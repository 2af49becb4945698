package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/SignVault/pkg/signvault/blob"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Upload.Timeout != 30*time.Second {
		t.Errorf("Upload.Timeout = %v, want 30s", cfg.Upload.Timeout)
	}
	if cfg.Stream.HistorySize != 100 {
		t.Errorf("Stream.HistorySize = %d, want 100", cfg.Stream.HistorySize)
	}
	if cfg.Blob.Type != blob.TypeFileSystem || cfg.Blob.Root == "" {
		t.Errorf("Blob = %+v, want filesystem with root", cfg.Blob)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestReadOverlaysDefaults(t *testing.T) {
	cfg := Default()
	in := `
log_level = "debug"

[server]
port = 8080
allowed_origins = ["http://localhost:19006"]

[blob]
type = "s3"
s3_bucket = "clips"
s3_endpoint = "http://minio:9000"
s3_path_style = true

[upload]
timeout = "45s"
`
	if err := Read(strings.NewReader(in), cfg); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:19006" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Upload.Timeout != 45*time.Second {
		t.Errorf("Upload.Timeout = %v, want 45s", cfg.Upload.Timeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Stream.ConsumerQueue != 256 {
		t.Errorf("Stream.ConsumerQueue = %d, want 256", cfg.Stream.ConsumerQueue)
	}

	bc := cfg.BlobStoreConfig()
	if bc.Type != blob.TypeS3 || bc.S3.Bucket != "clips" || bc.S3.Endpoint != "http://minio:9000" || !bc.S3.UsePathStyle {
		t.Errorf("BlobStoreConfig() = %+v", bc)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	original := Default()
	original.Server.Port = 4000
	original.Blob.Root = "/srv/clips"

	var buf bytes.Buffer
	if err := Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got := &Config{}
	if err := Read(&buf, got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Server.Port != 4000 || got.Blob.Root != "/srv/clips" {
		t.Errorf("round trip lost values: %+v", got)
	}
	if got.Lookup.CacheTTL != original.Lookup.CacheTTL {
		t.Errorf("CacheTTL = %v, want %v", got.Lookup.CacheTTL, original.Lookup.CacheTTL)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"SIGNVAULT_PORT":            "9000",
		"SIGNVAULT_DB_PATH":         "/var/lib/signvault.db",
		"SIGNVAULT_BLOB_TYPE":       "memory",
		"SIGNVAULT_ALLOWED_ORIGINS": "http://a.test, ,http://b.test",
		"LOG_LEVEL":                 "warn",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Database.Path != "/var/lib/signvault.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Blob.Type != "memory" {
		t.Errorf("Blob.Type = %q, want memory", cfg.Blob.Type)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}

	if err := cfg.ApplyEnv(envMap(map[string]string{"SIGNVAULT_PORT": "http"})); err == nil {
		t.Error("Expected error for non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"no db path", func(c *Config) { c.Database.Path = "" }},
		{"unknown blob type", func(c *Config) { c.Blob.Type = "ftp" }},
		{"filesystem without root", func(c *Config) { c.Blob.Root = "" }},
		{"s3 without bucket", func(c *Config) { c.Blob.Type = "s3" }},
		{"zero timeout", func(c *Config) { c.Upload.Timeout = 0 }},
		{"zero history", func(c *Config) { c.Stream.HistorySize = 0 }},
		{"zero queue", func(c *Config) { c.Stream.ConsumerQueue = 0 }},
		{"negative cache", func(c *Config) { c.Lookup.CacheSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signvault.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 3100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SIGNVAULT_PORT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 3100 {
		t.Errorf("Port = %d, want 3100", cfg.Server.Port)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}

func TestServiceOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.ServiceOptions(blob.NewMemoryStore(), nil)
	if len(opts) != 9 {
		t.Errorf("Expected 9 options, got %d", len(opts))
	}
}
