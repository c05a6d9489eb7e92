// Package prefs implements provider.PreferenceStore backends.
package prefs

import (
	"context"
	"sync"
	"time"

	"github.com/adamancini/nudge/internal/provider"
)

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	prefs provider.Preferences
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LastCheckTime returns the time of the last prompt-eligible check. ok is
// false when none was recorded.
func (s *MemoryStore) LastCheckTime(ctx context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fromMillis(s.prefs.LastCheckTime)
}

// SetLastCheckTime records t as the last check time.
func (s *MemoryStore) SetLastCheckTime(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.LastCheckTime = provider.Millis(t)
	return nil
}

// RemindLaterTime returns the end of the remind-later window. ok is false
// when no reminder is pending.
func (s *MemoryStore) RemindLaterTime(ctx context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fromMillis(s.prefs.RemindLaterTime)
}

// SetRemindLaterTime suppresses prompts until t.
func (s *MemoryStore) SetRemindLaterTime(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.RemindLaterTime = provider.Millis(t)
	return nil
}

// ClearRemindLaterTime drops any pending reminder.
func (s *MemoryStore) ClearRemindLaterTime(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.RemindLaterTime = nil
	return nil
}

// DismissCount returns how many times the prompt was deferred.
func (s *MemoryStore) DismissCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.DismissCount, nil
}

// IncrementDismissCount bumps the dismiss counter by one.
func (s *MemoryStore) IncrementDismissCount(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.DismissCount++
	return nil
}

// LastShownVersion returns the latest version last prompted for, or "".
func (s *MemoryStore) LastShownVersion(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.LastShownVersion, nil
}

// SetLastShownVersion records v as prompted for.
func (s *MemoryStore) SetLastShownVersion(ctx context.Context, v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.LastShownVersion = v
	return nil
}

// AutoUpdateEnabled reports the stored auto-update flag.
func (s *MemoryStore) AutoUpdateEnabled(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.AutoUpdateEnabled, nil
}

// SetAutoUpdateEnabled stores the auto-update flag.
func (s *MemoryStore) SetAutoUpdateEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.AutoUpdateEnabled = enabled
	return nil
}

// AllPreferences returns a copy of every stored preference.
func (s *MemoryStore) AllPreferences(ctx context.Context) (provider.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePrefs(s.prefs), nil
}

// ClearAll resets the store to empty.
func (s *MemoryStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = provider.Preferences{}
	return nil
}

// fromMillis converts a stored epoch-millisecond value.
func fromMillis(ms *int64) (time.Time, bool, error) {
	if ms == nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(*ms), true, nil
}

func clonePrefs(p provider.Preferences) provider.Preferences {
	out := p
	if p.LastCheckTime != nil {
		v := *p.LastCheckTime
		out.LastCheckTime = &v
	}
	if p.RemindLaterTime != nil {
		v := *p.RemindLaterTime
		out.RemindLaterTime = &v
	}
	return out
}
