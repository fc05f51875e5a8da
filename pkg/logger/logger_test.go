package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopcheck.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Info("flow %s started", "de/quick_buyer")
	Warn("retrying %d", 2)
	With("language", "de").Info("step finished")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d log lines, want 3:\n%s", len(lines), data)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if entry["msg"] != "flow de/quick_buyer started" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if !strings.Contains(lines[2], `"language":"de"`) {
		t.Errorf("structured field missing: %s", lines[2])
	}
}

func TestLogging_WithoutInitIsNoop(t *testing.T) {
	Close()
	Info("dropped")
	Error("dropped %v", 1)
	if With("language", "en") == nil {
		t.Error("With() should return a no-op logger before Init")
	}
}

func TestInit_BadPath(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "missing", "x.log")); err == nil {
		t.Error("expected error for missing directory")
	}
}
