package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/himanishpuri/SignVault/pkg/models"
)

// fakeServer answers the clip endpoints from memory and records every path
// it was asked for.
type fakeServer struct {
	mu    sync.Mutex
	clips map[string]map[string]string // label -> upload body
	paths []string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)

	var body map[string]string
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)

	switch r.URL.Path {
	case "/upload-video":
		if strings.TrimSpace(body["username"]) == "" {
			w.WriteHeader(http.StatusBadRequest)
			enc.Encode(map[string]any{"status": "error", "message": "username required", "code": "invalid_input"})
			return
		}
		label := strings.ToLower(body["label"])
		f.clips[label] = body
		enc.Encode(map[string]any{"status": "success", "id": "clip-1", "label": label, "count": 1})
	case "/search-sign":
		clip, ok := f.clips[strings.ToLower(body["word"])]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			enc.Encode(map[string]any{"status": "error", "message": "No video found", "code": "not_found"})
			return
		}
		enc.Encode(map[string]any{
			"status": "success", "videoData": clip["video_data"], "mimeType": clip["mime_type"],
			"clipId": "clip-1", "label": clip["label"], "owner": clip["username"],
			"createdAt": time.Now().UTC(),
		})
	case "/user-counts":
		enc.Encode(map[string]any{"status": "success", "users": []models.UserCount{{Username: "amy", Count: 1}}})
	case "/labels":
		w.WriteHeader(http.StatusInternalServerError)
		enc.Encode(map[string]any{"status": "error", "message": "catalog unavailable", "code": "storage_failure"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeServer) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func TestRemoteCommandsUseServer(t *testing.T) {
	fake := &fakeServer{clips: map[string]map[string]string{}}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	dir := t.TempDir()
	clip := filepath.Join(dir, "hello.webm")
	if err := os.WriteFile(clip, []byte("webm-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, dir, "--server", ts.URL+"/", "upload", clip, "--user", "amy", "--label", "Hello"); err != nil {
		t.Fatalf("remote upload failed: %v", err)
	}
	saved := filepath.Join(dir, "found.webm")
	if _, err := runCLI(t, dir, "--server", ts.URL, "search", "HELLO", "--out", saved); err != nil {
		t.Fatalf("remote search failed: %v", err)
	}
	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("Expected clip written to %s: %v", saved, err)
	}
	if string(data) != "webm-bytes" {
		t.Errorf("saved clip = %q", data)
	}

	if _, err := runCLI(t, dir, "--server", ts.URL, "search", "missing"); err != nil {
		t.Errorf("remote not-found search should not fail the command: %v", err)
	}
	if _, err := runCLI(t, dir, "--server", ts.URL, "leaderboard"); err != nil {
		t.Errorf("remote leaderboard failed: %v", err)
	}

	want := []string{
		"POST /upload-video",
		"POST /search-sign",
		"POST /search-sign",
		"GET /user-counts",
	}
	got := fake.requested()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("requests = %v, want %v", got, want)
	}

	if _, err := os.Stat(filepath.Join(dir, "cli.sqlite3")); !os.IsNotExist(err) {
		t.Errorf("Expected no local catalog in remote mode, stat err = %v", err)
	}
}

func TestRemoteCommandErrors(t *testing.T) {
	fake := &fakeServer{clips: map[string]map[string]string{}}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	dir := t.TempDir()
	clip := filepath.Join(dir, "a.mp4")
	os.WriteFile(clip, []byte("x"), 0o644)

	_, err := runCLI(t, dir, "--server", ts.URL, "upload", clip, "--user", " ", "--label", "hi")
	if err == nil || !strings.Contains(err.Error(), "username required") {
		t.Errorf("Expected server rejection to surface, got %v", err)
	}

	_, err = runCLI(t, dir, "--server", ts.URL, "labels")
	if err == nil || !strings.Contains(err.Error(), "catalog unavailable") {
		t.Errorf("Expected server error to surface, got %v", err)
	}

	ts.Close()
	if _, err := runCLI(t, dir, "--server", ts.URL, "leaderboard"); err == nil {
		t.Error("Expected an unreachable server to fail the command")
	}
}
