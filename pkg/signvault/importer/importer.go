// Package importer downloads a clip from a remote video page with yt-dlp so
// it can be submitted like an upload.
package importer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/SignVault/pkg/logger"
	"github.com/himanishpuri/SignVault/pkg/utils"
	"github.com/lrstanley/go-ytdlp"
)

var (
	ErrInvalidURL = errors.New("invalid video url")
	ErrTooLarge   = errors.New("downloaded clip too large")
)

// Media is a downloaded clip.
type Media struct {
	Data     []byte
	MimeType string
	Source   string // slug of the source URL
}

type Fetcher struct {
	workDir  string
	maxBytes int64
	log      *logger.Logger
}

// New returns a Fetcher that downloads into temporary directories under
// workDir (os.TempDir when empty) and rejects files above maxBytes.
func New(workDir string, maxBytes int64) *Fetcher {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Fetcher{
		workDir:  workDir,
		maxBytes: maxBytes,
		log:      logger.GetLogger().With("importer"),
	}
}

// Fetch downloads the best single-file rendition of rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Media, error) {
	u, err := utils.ValidateVideoURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	slug := utils.VideoSlug(u)

	if err := utils.MakeDir(f.workDir); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	dir, err := os.MkdirTemp(f.workDir, "import-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	f.log.Infof("downloading %s", u.String())
	_, err = ytdlp.New().
		Format("best[ext=mp4]/best").
		NoPlaylist().
		NoWarnings().
		Output(filepath.Join(dir, slug+".%(ext)s")).
		Run(ctx, u.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp download failed: %w", err)
	}

	path, err := downloadedFile(dir, slug)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat download: %w", err)
	}
	if f.maxBytes > 0 && info.Size() > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %s", ErrTooLarge,
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(f.maxBytes)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}
	f.log.Infof("downloaded %s (%s)", slug, humanize.IBytes(uint64(len(data))))
	return &Media{Data: data, MimeType: MimeTypeFor(path), Source: slug}, nil
}

// downloadedFile finds the finished output for slug, ignoring partial files.
func downloadedFile(dir, slug string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, slug+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		return m, nil
	}
	return "", fmt.Errorf("no downloaded file found for %s", slug)
}

// MimeTypeFor guesses a video mime type from a file extension, falling back
// to video/mp4.
func MimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "video/") {
		return strings.SplitN(t, ";", 2)[0]
	}
	return "video/mp4"
}
