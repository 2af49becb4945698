//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/himanishpuri/SignVault/internal/config"
	"github.com/himanishpuri/SignVault/pkg/logger"
	"github.com/himanishpuri/SignVault/pkg/signvault"
	"github.com/himanishpuri/SignVault/pkg/signvault/blob"
	"github.com/himanishpuri/SignVault/pkg/signvault/importer"
)

var (
	configPath     string
	port           int
	dbPath         string
	allowedOrigins string
	logLevel       string
)

func init() {
	flag.StringVar(&configPath, "config", os.Getenv("SIGNVAULT_CONFIG"), "Path to TOML config file")
	flag.IntVar(&port, "port", 3000, "HTTP server port")
	flag.StringVar(&dbPath, "db", signvault.DefaultDBPath, "Path to SQLite catalog")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = port
		case "db":
			cfg.Database.Path = dbPath
		case "origins":
			cfg.Server.AllowedOrigins = config.SplitList(allowedOrigins)
		case "log-level":
			cfg.LogLevel = logLevel
		}
	})
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("%v, using INFO", err)
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := blob.NewFromConfig(ctx, cfg.BlobStoreConfig())
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}
	if err := store.ValidateSetup(ctx); err != nil {
		log.Fatalf("Blob store %s is not usable: %v", store.Name(), err)
	}

	service, err := signvault.NewService(cfg.ServiceOptions(store, log.With("service"))...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	fetcher := importer.New(cfg.Import.WorkDir, cfg.Upload.MaxClipBytes)

	server := NewServer(service, fetcher, cfg)
	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}
