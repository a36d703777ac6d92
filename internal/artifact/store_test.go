package artifact

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestFSStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	wav := []byte("RIFF-test-payload")
	createdAt := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	path, err := store.Save(context.Background(), "call-42", createdAt, wav)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if string(data) != string(wav) {
		t.Errorf("artifact content mismatch: got %q", data)
	}
	if !strings.Contains(path, "call-42") {
		t.Errorf("expected session id in artifact name, got %s", path)
	}
	if !strings.HasSuffix(path, ".wav") {
		t.Errorf("expected .wav suffix, got %s", path)
	}
}

func TestFSStore_UniqueNames(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	createdAt := time.Now()
	first, err := store.Save(context.Background(), "call-1", createdAt, []byte("a"))
	if err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	second, err := store.Save(context.Background(), "call-1", createdAt, []byte("b"))
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if first == second {
		t.Error("expected distinct artifact names for identical timestamps")
	}
}

func TestFSStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/artifacts"
	if _, err := NewFSStore(dir); err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected artifact directory to exist: %v", err)
	}
}

func TestFSStore_Backend(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.Backend() != "fs" {
		t.Errorf("expected backend fs, got %s", store.Backend())
	}
}
