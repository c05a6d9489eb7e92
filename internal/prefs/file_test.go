package prefs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "prefs.json")))
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")

	first := NewFileStore(path)
	if err := first.SetRemindLaterTime(ctx, time.UnixMilli(42_000)); err != nil {
		t.Fatalf("SetRemindLaterTime: %v", err)
	}

	second := NewFileStore(path)
	got, ok, err := second.RemindLaterTime(ctx)
	if err != nil || !ok {
		t.Fatalf("RemindLaterTime = ok %v, err %v", ok, err)
	}
	if got.UnixMilli() != 42_000 {
		t.Errorf("RemindLaterTime = %d, want 42000", got.UnixMilli())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read prefs file: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		t.Fatalf("prefs file is not JSON: %v", err)
	}
	if raw["remind_later_time"] != float64(42_000) {
		t.Errorf("remind_later_time = %v, want epoch millis 42000", raw["remind_later_time"])
	}
}

func TestFileStoreInstallationID(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")

	s := NewFileStore(path)
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	id, err := s.InstallationID(ctx)
	if err != nil {
		t.Fatalf("InstallationID: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("InstallationID = %q, want a UUID", id)
	}

	reopened := NewFileStore(path)
	again, err := reopened.InstallationID(ctx)
	if err != nil {
		t.Fatalf("InstallationID: %v", err)
	}
	if again != id {
		t.Errorf("InstallationID changed across instances: %q != %q", again, id)
	}

	if err := reopened.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if kept, _ := reopened.InstallationID(ctx); kept != id {
		t.Errorf("ClearAll dropped installation ID")
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := NewFileStore(path).LastCheckTime(context.Background())
	if err == nil {
		t.Fatal("expected error for corrupt file")
	}
	if !strings.Contains(err.Error(), "failed to parse preferences") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	want := filepath.Join(dir, "nudge", "prefs.json")
	if got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
