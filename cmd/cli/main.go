package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/SignVault/internal/config"
	"github.com/himanishpuri/SignVault/pkg/logger"
	"github.com/himanishpuri/SignVault/pkg/models"
	"github.com/himanishpuri/SignVault/pkg/signvault"
	"github.com/himanishpuri/SignVault/pkg/signvault/blob"
	"github.com/himanishpuri/SignVault/pkg/signvault/importer"
	"github.com/himanishpuri/SignVault/pkg/signvault/storage"
	"github.com/himanishpuri/SignVault/pkg/utils"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Global flags
var (
	configPath string
	dbPath     string
	blobRoot   string
	logLevel   string
	serverURL  string
)

const defaultServerURL = "http://localhost:3000"

func main() {
	ctx, stop := signalContext(context.Background())
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the global flags that were
// set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.Path = dbPath
	}
	if flags.Changed("blob-root") {
		cfg.Blob.Type = blob.TypeFileSystem
		cfg.Blob.Root = blobRoot
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	return cfg, nil
}

// createService builds a service over the same catalog and blob store the
// server uses. The caller must Close it.
func createService(ctx context.Context, cmd *cobra.Command) (signvault.Service, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := blob.NewFromConfig(ctx, cfg.BlobStoreConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("creating blob store: %w", err)
	}
	svc, err := signvault.NewService(cfg.ServiceOptions(store, logger.GetLogger().With("cli"))...)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing service: %w", err)
	}
	return svc, cfg, nil
}

// fancy reports whether stdout is a terminal, in which case the banner and
// decorated output are printed.
func fancy() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func printBanner() {
	if !fancy() {
		return
	}
	fmt.Println(`
 ____  _           __     __          _ _
/ ___|(_) __ _ _ __\ \   / /_ _ _   _| | |_
\___ \| |/ _' | '_ \\ \ / / _' | | | | | __|
 ___) | | (_| | | | |\ V / (_| | |_| | | |_
|____/|_|\__, |_| |_| \_/ \__,_|\__,_|_|\__|
         |___/
        Sign Clip Library CLI`)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "signvault",
		Short:         "Manage a sign-language clip library",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			printBanner()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", os.Getenv("SIGNVAULT_CONFIG"), "Path to TOML config file")
	pf.StringVar(&dbPath, "db", signvault.DefaultDBPath, "Path to SQLite catalog")
	pf.StringVar(&blobRoot, "blob-root", signvault.DefaultBlobRoot, "Directory for clip blobs (forces the filesystem store)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	pf.StringVarP(&serverURL, "server", "s", os.Getenv("SIGNVAULT_SERVER"),
		"Base URL of a running server; commands go through its API instead of opening the catalog")

	root.AddCommand(
		newUploadCmd(),
		newImportCmd(),
		newSearchCmd(),
		newLeaderboardCmd(),
		newLabelsCmd(),
		newStatsCmd(),
		newConfigCmd(),
		newSimulateCmd(),
	)
	return root
}

// withService opens a local service, runs fn and closes it.
func withService(cmd *cobra.Command, fn func(signvault.Service, *config.Config) error) error {
	svc, cfg, err := createService(cmd.Context(), cmd)
	if err != nil {
		if errors.Is(err, storage.ErrCatalogLocked) {
			return fmt.Errorf("%w (is the server running? use --server)", err)
		}
		return err
	}
	defer svc.Close()
	return fn(svc, cfg)
}

func newUploadCmd() *cobra.Command {
	var username, label, mimeType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local video clip under a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if mimeType == "" {
				mimeType = importer.MimeTypeFor(path)
			}
			req := signvault.UploadRequest{
				Username:    username,
				Label:       label,
				MediaBase64: base64.StdEncoding.EncodeToString(data),
				MimeType:    mimeType,
			}

			fmt.Printf("📤 Uploading %s (%s)...\n", filepath.Base(path), humanize.IBytes(uint64(len(data))))
			if serverURL != "" {
				res, err := newRemoteClient(serverURL).upload(cmd.Context(), req, len(data))
				if err != nil {
					return err
				}
				return printUpload(res)
			}
			return withService(cmd, func(svc signvault.Service, _ *config.Config) error {
				return printUpload(svc.Submit(cmd.Context(), req))
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "Uploader username (required)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Word the clip signs (required)")
	cmd.Flags().StringVar(&mimeType, "mime", "", "Media type (default: guessed from the file extension)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("label")
	return cmd
}

func newImportCmd() *cobra.Command {
	var username, label string

	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Download a clip with yt-dlp and store it under a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			fmt.Println("📥 Downloading video...")
			fmt.Println("   This may take a few moments depending on video length")

			if serverURL != "" {
				res, err := newRemoteClient(serverURL).importURL(ctx, args[0], username, label)
				if err != nil {
					return err
				}
				return printUpload(res)
			}
			return withService(cmd, func(svc signvault.Service, cfg *config.Config) error {
				media, err := importer.New(cfg.Import.WorkDir, cfg.Upload.MaxClipBytes).Fetch(ctx, args[0])
				if err != nil {
					return fmt.Errorf("downloading %s: %w", args[0], err)
				}
				fmt.Printf("✅ Downloaded %s (%s)\n", media.Source, humanize.IBytes(uint64(len(media.Data))))
				return printUpload(svc.SubmitMedia(ctx, username, label, media.Data, media.MimeType))
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "Uploader username (required)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Word the clip signs (required)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("label")
	return cmd
}

func printUpload(res signvault.UploadResult) error {
	if !res.OK() {
		return fmt.Errorf("upload rejected (%s): %s", res.Code, res.Reason)
	}
	fmt.Println("\n✅ Clip stored")
	fmt.Printf("   ID:     %s\n", res.ID)
	fmt.Printf("   Label:  %s\n", res.Label)
	if res.Size > 0 {
		fmt.Printf("   Size:   %s\n", humanize.IBytes(uint64(res.Size)))
	}
	fmt.Printf("   Uploads by this user: %d\n", res.Count)
	return nil
}

func newSearchCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "search <word>",
		Short: "Find the most recent clip for a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				res, err := newRemoteClient(serverURL).find(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printLookup(res, out)
			}
			return withService(cmd, func(svc signvault.Service, _ *config.Config) error {
				return printLookup(svc.Find(cmd.Context(), args[0]), out)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the clip to this file")
	return cmd
}

func printLookup(res signvault.LookupResult, out string) error {
	if !res.Found() {
		if res.Code == signvault.KindNotFound {
			fmt.Printf("\n❌ %s\n", res.Reason)
			return nil
		}
		return fmt.Errorf("search failed (%s): %s", res.Code, res.Reason)
	}

	data, err := base64.StdEncoding.DecodeString(res.VideoData)
	if err != nil {
		return fmt.Errorf("decoding clip: %w", err)
	}
	fmt.Printf("\n✅ Found \"%s\"\n", res.Label)
	fmt.Printf("   Clip:     %s\n", res.ClipID)
	fmt.Printf("   Owner:    %s\n", res.Owner)
	fmt.Printf("   Type:     %s\n", res.MimeType)
	fmt.Printf("   Size:     %s\n", humanize.IBytes(uint64(len(data))))
	fmt.Printf("   Uploaded: %s\n", humanize.Time(res.CreatedAt))

	if out != "" {
		if err := utils.WriteFileAtomic(out, data); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Printf("   Saved to: %s\n", out)
	}
	return nil
}

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"users"},
		Short:   "List uploaders by number of clips",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				env, err := newRemoteClient(serverURL).get(cmd.Context(), "/user-counts")
				if err != nil {
					return err
				}
				printLeaderboard(env.Users)
				return nil
			}
			return withService(cmd, func(svc signvault.Service, _ *config.Config) error {
				printLeaderboard(svc.Leaderboard())
				return nil
			})
		},
	}
}

func printLeaderboard(users []models.UserCount) {
	if len(users) == 0 {
		fmt.Println("\n📭 No uploads yet")
		return
	}
	fmt.Printf("\n🏆 %d uploader(s):\n\n", len(users))
	for i, u := range users {
		fmt.Printf("%3d. %-24s %s\n", i+1, u.Username, humanize.Comma(u.Count))
	}
}

func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List labels with their clip counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				env, err := newRemoteClient(serverURL).get(cmd.Context(), "/labels")
				if err != nil {
					return err
				}
				printLabels(env.Labels)
				return nil
			}
			return withService(cmd, func(svc signvault.Service, _ *config.Config) error {
				printLabels(svc.Labels())
				return nil
			})
		},
	}
}

func printLabels(labels []models.LabelCount) {
	if len(labels) == 0 {
		fmt.Println("\n📭 No labels yet")
		return
	}
	fmt.Printf("\n📚 %d label(s):\n\n", len(labels))
	for _, l := range labels {
		fmt.Printf("   %-24s %d clip(s)\n", l.Label, l.Clips)
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				env, err := newRemoteClient(serverURL).get(cmd.Context(), "/api/health/metrics")
				if err != nil {
					return err
				}
				printStats(env.DBPath, env.Stats)
				return nil
			}
			return withService(cmd, func(svc signvault.Service, cfg *config.Config) error {
				stats, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				printStats(cfg.Database.Path, stats)
				return nil
			})
		},
	}
}

func printStats(catalog string, stats signvault.Stats) {
	fmt.Printf("Catalog:    %s\n", catalog)
	fmt.Printf("Blob store: %s\n", stats.BlobBackend)
	fmt.Printf("Clips:      %s\n", humanize.Comma(stats.Clips))
	fmt.Printf("Labels:     %d\n", stats.Labels)
	fmt.Printf("Users:      %d\n", stats.Users)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return config.Write(cmd.OutOrStdout(), cfg)
		},
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
