package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/SignVault/pkg/utils"
)

// FileSystemStore keeps one file per payload under root, fanned out by the
// first two characters of the key:
//
//	<root>/
//	  3f/
//	    3f2a9c...   (payload)
type FileSystemStore struct {
	root string
}

func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("filesystem blob store requires a root directory")
	}
	if err := utils.MakeDir(root); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", root, err)
	}
	return &FileSystemStore{root: root}, nil
}

func (s *FileSystemStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	shard := key
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.root, shard, key), nil
}

// Put writes through a temp file, fsyncs, then renames into place.
func (s *FileSystemStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := s.path(key)
	if err != nil {
		return err
	}
	if err := utils.MakeDir(filepath.Dir(dest)); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	written, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to write content: %w", err)
	}
	if written != size {
		cleanup()
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := utils.MoveFile(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *FileSystemStore) Get(ctx context.Context, key string, w io.Writer) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return nil
}

func (s *FileSystemStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ValidateSetup checks that the root exists and accepts writes.
func (s *FileSystemStore) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("blob root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob root is not a directory: %s", s.root)
	}
	marker := filepath.Join(s.root, ".writable")
	if err := utils.WriteFileAtomic(marker, []byte("ok")); err != nil {
		return fmt.Errorf("blob root not writable: %w", err)
	}
	return os.Remove(marker)
}

func (s *FileSystemStore) Name() string { return "filesystem" }

// Root returns the directory payloads are stored under.
func (s *FileSystemStore) Root() string { return s.root }

var _ Store = (*FileSystemStore)(nil)
