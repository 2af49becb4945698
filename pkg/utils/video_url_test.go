package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidateVideoURL(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=abc123",
		"http://example.com/sign.mp4",
	}
	for _, raw := range valid {
		if _, err := ValidateVideoURL(raw); err != nil {
			t.Errorf("ValidateVideoURL(%q) unexpected error: %v", raw, err)
		}
	}

	invalid := []string{"", "ftp://example.com/a.mp4", "not a url", "/relative/path.mp4"}
	for _, raw := range invalid {
		if _, err := ValidateVideoURL(raw); err == nil {
			t.Errorf("ValidateVideoURL(%q) expected error", raw)
		}
	}
}

func TestVideoSlug(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc123", "yt-abc123"},
		{"https://youtu.be/xyz789", "yt-xyz789"},
		{"https://www.youtube.com/embed/emb456", "yt-emb456"},
		{"https://www.youtube.com/shorts/sh0rt", "yt-sh0rt"},
	}
	for _, tt := range tests {
		u, err := ValidateVideoURL(tt.raw)
		if err != nil {
			t.Fatalf("ValidateVideoURL(%q): %v", tt.raw, err)
		}
		if got := VideoSlug(u); got != tt.want {
			t.Errorf("VideoSlug(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}

	u, _ := ValidateVideoURL("https://example.com/hello.mp4")
	slug := VideoSlug(u)
	if !strings.HasPrefix(slug, "url-") || len(slug) != len("url-")+12 {
		t.Errorf("Unexpected slug for generic URL: %q", slug)
	}
	if VideoSlug(u) != slug {
		t.Error("Expected slug to be stable")
	}
}

func TestNewClipID(t *testing.T) {
	a, b := NewClipID(), NewClipID()
	if a == b {
		t.Fatal("Expected distinct clip IDs")
	}
	if u, err := uuid.Parse(a); err != nil || u.Version() != 4 {
		t.Errorf("Expected %q to be a version 4 UUID (err: %v)", a, err)
	}
}
