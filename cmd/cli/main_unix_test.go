//go:build unix

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/SignVault/pkg/signvault/storage"
)

func TestLocalCommandFailsWhileCatalogHeld(t *testing.T) {
	dir := t.TempDir()
	held, err := storage.NewDBClientWithPath(filepath.Join(dir, "cli.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	defer held.Close()

	clip := filepath.Join(dir, "a.webm")
	os.WriteFile(clip, []byte("x"), 0o644)

	_, err = runCLI(t, dir, "upload", clip, "--user", "amy", "--label", "hi")
	if !errors.Is(err, storage.ErrCatalogLocked) {
		t.Fatalf("Expected ErrCatalogLocked, got %v", err)
	}
	if !strings.Contains(err.Error(), "--server") {
		t.Errorf("Expected the error to point at --server, got %v", err)
	}
}
