package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{Level: level, Output: &buf})
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger(WARN)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("Expected DEBUG and INFO to be filtered, got:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") {
		t.Errorf("Expected WARN line, got:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("Expected ERROR line, got:\n%s", out)
	}
}

func TestWithComponent(t *testing.T) {
	l, buf := newTestLogger(DEBUG)

	child := l.With("upload").With("store")
	child.Infof("stored %s", "abc")

	if !strings.Contains(buf.String(), "(upload.store) stored abc") {
		t.Errorf("Expected component prefix, got: %q", buf.String())
	}

	// Children share the parent's level.
	l.SetLevel(ERROR)
	buf.Reset()
	child.Infof("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected child to follow parent level, got: %q", buf.String())
	}
}

func TestFatalExits(t *testing.T) {
	l, buf := newTestLogger(INFO)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatalf("boom")

	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] boom") {
		t.Errorf("Expected FATAL line, got: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"", INFO, false},
		{"warning", WARN, false},
		{"Error", ERROR, false},
		{"fatal", FATAL, false},
		{"verbose", INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
