package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_Level(t *testing.T) {
	tests := []struct {
		level     string
		wantInfo  bool
		wantError bool
	}{
		{"", false, false},
		{"info", true, false},
		{"DEBUG", true, false},
		{"error", false, false},
		{"loud", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, closer, err := New(Options{Level: tt.level, Stderr: &buf})
			if (err != nil) != tt.wantError {
				t.Fatalf("New(%q) error = %v", tt.level, err)
			}
			if err != nil {
				return
			}
			defer closer.Close()

			logger.Info("hello", "k", "v")
			if got := strings.Contains(buf.String(), "hello"); got != tt.wantInfo {
				t.Fatalf("info logged = %v, want %v (output %q)", got, tt.wantInfo, buf.String())
			}
		})
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "watchparty.log")
	var stderr bytes.Buffer
	logger, closer, err := New(Options{Level: "info", File: path, Stderr: &stderr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("Using mock data", "key", "GET /parties/")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `key="GET /parties/"`) {
		t.Fatalf("log file = %q", data)
	}
	if stderr.Len() != 0 {
		t.Fatalf("stderr got %q", stderr.String())
	}
}
