//go:build unix

package storage

import (
	"errors"
	"testing"
)

func TestCatalogLockedWhileOpen(t *testing.T) {
	client, dbPath := setupTestDB(t)

	second, err := NewDBClientWithPath(dbPath)
	if !errors.Is(err, ErrCatalogLocked) {
		if second != nil {
			second.Close()
		}
		t.Fatalf("Expected ErrCatalogLocked for a second client, got %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := NewDBClientWithPath(dbPath)
	if err != nil {
		t.Fatalf("Expected reopen after Close to succeed, got %v", err)
	}
	reopened.Close()
}
