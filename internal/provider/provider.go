// Package provider defines the contracts the update engine uses to reach
// version data and persisted check state.
//
// Each contract is a small required interface. Optional capabilities are
// separate interfaces that an implementation may also satisfy; the engine
// probes for them at call time and falls back to inert defaults.
package provider

import (
	"context"
	"time"

	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/storeurl"
)

// DataSource reports the running version, the latest published version and
// the storefront configuration.
type DataSource interface {
	CurrentVersion(ctx context.Context) (string, error)
	// LatestVersion returns "" when nothing is published for p.
	LatestVersion(ctx context.Context, p platform.Platform) (string, error)
	AppStoreConfig(ctx context.Context) (storeurl.Config, error)
}

// PlatformProvider lets a data source override platform detection.
// Returning "" leaves the choice to the engine's detector.
type PlatformProvider interface {
	CurrentPlatform(ctx context.Context) (platform.Platform, error)
}

// VersionFormatter returns a display form of the current version.
type VersionFormatter interface {
	FormattedVersion(ctx context.Context) (string, error)
}

// MandatoryChecker reports whether moving from current to latest is required.
type MandatoryChecker interface {
	IsUpdateMandatory(ctx context.Context, current, latest string) (bool, error)
}

// ChangeLogProvider returns release notes for a version, "" when none exist.
type ChangeLogProvider interface {
	ChangeLog(ctx context.Context, version string) (string, error)
}

// MinimumVersionProvider returns the oldest supported version for a
// platform, "" when there is no floor.
type MinimumVersionProvider interface {
	MinimumSupportedVersion(ctx context.Context, p platform.Platform) (string, error)
}

// AvailabilityChecker gates staged rollouts.
type AvailabilityChecker interface {
	IsVersionAvailableForUser(ctx context.Context, version string, p platform.Platform) (bool, error)
}

// PreferenceStore persists check timestamps and reminder state.
// The bool results report whether a value is stored.
type PreferenceStore interface {
	LastCheckTime(ctx context.Context) (time.Time, bool, error)
	SetLastCheckTime(ctx context.Context, t time.Time) error
	RemindLaterTime(ctx context.Context) (time.Time, bool, error)
	SetRemindLaterTime(ctx context.Context, t time.Time) error
	ClearRemindLaterTime(ctx context.Context) error
}

// DismissCounter counts "remind me later" choices.
type DismissCounter interface {
	DismissCount(ctx context.Context) (int, error)
	IncrementDismissCount(ctx context.Context) error
}

// ShownVersionRecorder remembers the last version a prompt was shown for.
type ShownVersionRecorder interface {
	LastShownVersion(ctx context.Context) (string, error)
	SetLastShownVersion(ctx context.Context, v string) error
}

// AutoUpdateToggle stores the user's auto-update preference.
type AutoUpdateToggle interface {
	AutoUpdateEnabled(ctx context.Context) (bool, error)
	SetAutoUpdateEnabled(ctx context.Context, enabled bool) error
}

// PreferenceDumper returns a snapshot of every stored preference.
type PreferenceDumper interface {
	AllPreferences(ctx context.Context) (Preferences, error)
}

// Clearer wipes all stored preferences.
type Clearer interface {
	ClearAll(ctx context.Context) error
}

// Initializer is an optional setup hook on either provider.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Disposer is an optional teardown hook on either provider.
type Disposer interface {
	Dispose(ctx context.Context) error
}

// Preferences is a point-in-time view of a preference store.
// Timestamps are epoch milliseconds; nil means unset.
type Preferences struct {
	LastCheckTime     *int64 `json:"last_check_time,omitempty" yaml:"last_check_time,omitempty"`
	RemindLaterTime   *int64 `json:"remind_later_time,omitempty" yaml:"remind_later_time,omitempty"`
	DismissCount      int    `json:"dismiss_count" yaml:"dismiss_count"`
	LastShownVersion  string `json:"last_shown_version,omitempty" yaml:"last_shown_version,omitempty"`
	AutoUpdateEnabled bool   `json:"auto_update_enabled" yaml:"auto_update_enabled"`
	InstallationID    string `json:"installation_id,omitempty" yaml:"installation_id,omitempty"`
}

// Millis converts t to an epoch-millisecond pointer.
func Millis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}
