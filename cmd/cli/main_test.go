package main

import (
	"bytes"
	"context"
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

func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SIGNVAULT_CONFIG", "")
	t.Setenv("SIGNVAULT_SERVER", "")

	base := []string{
		"--db", filepath.Join(dir, "cli.sqlite3"),
		"--blob-root", filepath.Join(dir, "clips"),
		"--log-level", "error",
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(base, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUploadThenSearchCommands(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "hello.webm")
	if err := os.WriteFile(clip, []byte("webm-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, dir, "upload", clip, "--user", "amy", "--label", "Hello"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	saved := filepath.Join(dir, "out", "found.webm")
	if _, err := runCLI(t, dir, "search", "hello", "--out", saved); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("Expected clip written to %s: %v", saved, err)
	}
	if string(data) != "webm-bytes" {
		t.Errorf("saved clip = %q", data)
	}
}

func TestUploadCommandRejections(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "a.mp4")
	os.WriteFile(clip, []byte("x"), 0o644)

	if _, err := runCLI(t, dir, "upload", clip, "--label", "hi"); err == nil {
		t.Error("Expected missing --user to fail")
	}
	_, err := runCLI(t, dir, "upload", clip, "--user", " ", "--label", "hi")
	if err == nil || !strings.Contains(err.Error(), "username required") {
		t.Errorf("Expected blank username rejection, got %v", err)
	}
	if _, err := runCLI(t, dir, "upload", filepath.Join(dir, "missing.mp4"), "--user", "a", "--label", "b"); err == nil {
		t.Error("Expected missing file to fail")
	}
}

func TestSearchCommandNotFound(t *testing.T) {
	if _, err := runCLI(t, t.TempDir(), "search", "nothing"); err != nil {
		t.Errorf("not-found search should not fail the command: %v", err)
	}
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "config")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, filepath.Join(dir, "cli.sqlite3")) {
		t.Errorf("Expected --db to be reflected in config output:\n%s", out)
	}
	if !strings.Contains(out, "[blob]") {
		t.Errorf("Expected TOML sections in output:\n%s", out)
	}
}

func TestWalkerBoundedAndMonotonic(t *testing.T) {
	w := newWalker(42, 5)
	now := time.UnixMilli(10_000)
	w.clock = func() time.Time { return now }

	prev := int64(0)
	for i := 0; i < 1000; i++ {
		if i == 500 {
			now = now.Add(-time.Second)
		}
		s := w.next()
		for _, v := range []float64{s.X, s.Y, s.Z} {
			if v < -2*gravity || v > 2*gravity {
				t.Fatalf("sample %d out of range: %+v", i, s)
			}
		}
		if s.Timestamp < prev {
			t.Fatalf("timestamp went backwards at %d: %d < %d", i, s.Timestamp, prev)
		}
		prev = s.Timestamp
	}

	a, b := newWalker(7, 0.3), newWalker(7, 0.3)
	if a.next().X != b.next().X {
		t.Error("Expected identical seeds to produce identical walks")
	}
}

func TestRunSimulation(t *testing.T) {
	var (
		mu       sync.Mutex
		received []models.AccelerationSample
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acceleration" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Samples []models.AccelerationSample `json:"samples"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, body.Samples...)
		mu.Unlock()
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer ts.Close()

	opts := simulateOptions{rate: 1000, count: 25, batch: 10}
	sent, err := runSimulation(context.Background(), opts, newWalker(1, 0.3), newPublisher(ts.URL+"/"))
	if err != nil {
		t.Fatalf("runSimulation: %v", err)
	}
	if sent != 25 || len(received) != 25 {
		t.Errorf("sent = %d, received = %d, want 25", sent, len(received))
	}
}

func TestRunSimulationServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"status":"error","message":"sample is older than the newest retained sample"}`))
	}))
	defer ts.Close()

	_, err := runSimulation(context.Background(), simulateOptions{rate: 100, count: 5}, newWalker(1, 0.3), newPublisher(ts.URL))
	if err == nil || !strings.Contains(err.Error(), "older than") {
		t.Errorf("Expected server message in error, got %v", err)
	}
}

func TestRunSimulationStopsOnCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sent, err := runSimulation(ctx, simulateOptions{rate: 50}, newWalker(1, 0.3), newPublisher(ts.URL))
	if err != nil {
		t.Errorf("Expected clean stop, got %v", err)
	}
	if sent == 0 {
		t.Error("Expected some samples before cancellation")
	}
}
