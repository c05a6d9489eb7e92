package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adamancini/nudge/internal/provider"
)

// FileStore persists preferences as a JSON document on disk.
// Every mutation rewrites the file atomically.
type FileStore struct {
	path string

	mu     sync.Mutex
	loaded bool
	prefs  provider.Preferences
}

// NewFileStore creates a store backed by path. The file is created on the
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the default preferences file location.
func DefaultPath() (string, error) {
	// Use XDG_STATE_HOME or default to ~/.local/state
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "nudge", "prefs.json"), nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Initialize loads the file and assigns an installation ID if missing.
func (s *FileStore) Initialize(ctx context.Context) error {
	_, err := s.InstallationID(ctx)
	return err
}

// InstallationID returns the stable random ID of this installation,
// generating and persisting one on first use.
func (s *FileStore) InstallationID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return "", err
	}
	if s.prefs.InstallationID == "" {
		s.prefs.InstallationID = uuid.NewString()
		if err := s.saveLocked(); err != nil {
			return "", err
		}
	}
	return s.prefs.InstallationID, nil
}

func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read preferences: %w", err)
	}

	var prefs provider.Preferences
	if len(content) > 0 {
		if err := json.Unmarshal(content, &prefs); err != nil {
			return fmt.Errorf("failed to parse preferences %s: %w", s.path, err)
		}
	}
	s.prefs = prefs
	s.loaded = true
	return nil
}

func (s *FileStore) saveLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := json.MarshalIndent(s.prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

// read runs fn against the loaded preferences.
func (s *FileStore) read(fn func(p *provider.Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	fn(&s.prefs)
	return nil
}

// update applies fn and persists the result.
func (s *FileStore) update(fn func(p *provider.Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	fn(&s.prefs)
	return s.saveLocked()
}

// LastCheckTime returns the time of the last prompt-eligible check. ok is
// false when none was recorded.
func (s *FileStore) LastCheckTime(ctx context.Context) (t time.Time, ok bool, err error) {
	err = s.read(func(p *provider.Preferences) {
		t, ok, _ = fromMillis(p.LastCheckTime)
	})
	return t, ok, err
}

// SetLastCheckTime records t as the last check time.
func (s *FileStore) SetLastCheckTime(ctx context.Context, t time.Time) error {
	return s.update(func(p *provider.Preferences) {
		p.LastCheckTime = provider.Millis(t)
	})
}

// RemindLaterTime returns the end of the remind-later window. ok is false
// when no reminder is pending.
func (s *FileStore) RemindLaterTime(ctx context.Context) (t time.Time, ok bool, err error) {
	err = s.read(func(p *provider.Preferences) {
		t, ok, _ = fromMillis(p.RemindLaterTime)
	})
	return t, ok, err
}

// SetRemindLaterTime suppresses prompts until t.
func (s *FileStore) SetRemindLaterTime(ctx context.Context, t time.Time) error {
	return s.update(func(p *provider.Preferences) {
		p.RemindLaterTime = provider.Millis(t)
	})
}

// ClearRemindLaterTime drops any pending reminder.
func (s *FileStore) ClearRemindLaterTime(ctx context.Context) error {
	return s.update(func(p *provider.Preferences) {
		p.RemindLaterTime = nil
	})
}

// DismissCount returns how many times the prompt was deferred.
func (s *FileStore) DismissCount(ctx context.Context) (n int, err error) {
	err = s.read(func(p *provider.Preferences) { n = p.DismissCount })
	return n, err
}

// IncrementDismissCount bumps the dismiss counter by one.
func (s *FileStore) IncrementDismissCount(ctx context.Context) error {
	return s.update(func(p *provider.Preferences) { p.DismissCount++ })
}

// LastShownVersion returns the latest version last prompted for, or "".
func (s *FileStore) LastShownVersion(ctx context.Context) (v string, err error) {
	err = s.read(func(p *provider.Preferences) { v = p.LastShownVersion })
	return v, err
}

// SetLastShownVersion records v as prompted for.
func (s *FileStore) SetLastShownVersion(ctx context.Context, v string) error {
	return s.update(func(p *provider.Preferences) { p.LastShownVersion = v })
}

// AutoUpdateEnabled reports the stored auto-update flag.
func (s *FileStore) AutoUpdateEnabled(ctx context.Context) (enabled bool, err error) {
	err = s.read(func(p *provider.Preferences) { enabled = p.AutoUpdateEnabled })
	return enabled, err
}

// SetAutoUpdateEnabled stores the auto-update flag.
func (s *FileStore) SetAutoUpdateEnabled(ctx context.Context, enabled bool) error {
	return s.update(func(p *provider.Preferences) { p.AutoUpdateEnabled = enabled })
}

// AllPreferences returns a copy of every stored preference.
func (s *FileStore) AllPreferences(ctx context.Context) (prefs provider.Preferences, err error) {
	err = s.read(func(p *provider.Preferences) { prefs = clonePrefs(*p) })
	return prefs, err
}

// ClearAll wipes every preference except the installation ID.
func (s *FileStore) ClearAll(ctx context.Context) error {
	return s.update(func(p *provider.Preferences) {
		*p = provider.Preferences{InstallationID: p.InstallationID}
	})
}
