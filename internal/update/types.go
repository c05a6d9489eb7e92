package update

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adamancini/nudge/internal/platform"
)

const (
	// DefaultMinCheckInterval is the shortest gap between two prompt-eligible checks.
	DefaultMinCheckInterval = time.Hour
	// DefaultRemindLaterDuration is how long "remind me later" suppresses prompts.
	DefaultRemindLaterDuration = 24 * time.Hour
)

// SkipReason explains why a prompt was not shown.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipNoUpdate    SkipReason = "no_update"
	SkipWebPlatform SkipReason = "web_platform"
	SkipRemindLater SkipReason = "remind_later"
	SkipTooSoon     SkipReason = "too_soon"
	SkipError       SkipReason = "error"
)

// String returns the string representation of the SkipReason.
func (r SkipReason) String() string {
	return string(r)
}

// VersionInfo describes the versions seen by one evaluation.
// Empty LatestVersion or StoreURL means the value is unknown.
type VersionInfo struct {
	CurrentVersion  string            `json:"current_version" yaml:"current_version"`
	LatestVersion   string            `json:"latest_version,omitempty" yaml:"latest_version,omitempty"`
	UpdateAvailable bool              `json:"update_available" yaml:"update_available"`
	StoreURL        string            `json:"store_url,omitempty" yaml:"store_url,omitempty"`
	Platform        platform.Platform `json:"platform" yaml:"platform"`
}

// String renders the info for text output.
func (v VersionInfo) String() string {
	latest := v.LatestVersion
	if latest == "" {
		latest = "unknown"
	}
	s := fmt.Sprintf("Platform: %s\nCurrent version: %s\nLatest version: %s\nUpdate available: %t",
		v.Platform, v.CurrentVersion, latest, v.UpdateAvailable)
	if v.StoreURL != "" {
		s += "\nStore URL: " + v.StoreURL
	}
	return s
}

// Result is the outcome of ShouldShowUpdatePrompt.
type Result struct {
	ShouldShowPrompt bool        `json:"should_show_prompt" yaml:"should_show_prompt"`
	VersionInfo      VersionInfo `json:"version_info" yaml:"version_info"`
	SkipReason       SkipReason  `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Error            string      `json:"error,omitempty" yaml:"error,omitempty"`

	// Err is the provider error behind SkipError, kept for diagnostics.
	Err error `json:"-" yaml:"-"`
}

// String renders the result for text output.
func (r Result) String() string {
	var b strings.Builder
	b.WriteString(r.VersionInfo.String())
	if r.ShouldShowPrompt {
		b.WriteString("\nPrompt: show")
	} else {
		fmt.Fprintf(&b, "\nPrompt: skip (%s)", r.SkipReason)
	}
	if r.Error != "" {
		b.WriteString("\nError: " + r.Error)
	}
	return b.String()
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// MinCheckInterval throttles prompt-eligible checks. A negative value
	// disables the throttle.
	MinCheckInterval    time.Duration
	RemindLaterDuration time.Duration
	// SkipWebPlatform defaults to true when nil.
	SkipWebPlatform *bool
	Detector        platform.Detector
	Now             func() time.Time
	Logger          *slog.Logger
}

func (o Options) withDefaults() Options {
	switch {
	case o.MinCheckInterval == 0:
		o.MinCheckInterval = DefaultMinCheckInterval
	case o.MinCheckInterval < 0:
		o.MinCheckInterval = 0
	}
	if o.RemindLaterDuration <= 0 {
		o.RemindLaterDuration = DefaultRemindLaterDuration
	}
	if o.SkipWebPlatform == nil {
		skip := true
		o.SkipWebPlatform = &skip
	}
	if o.Detector == nil {
		o.Detector = platform.Detect
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Bool returns a pointer to b, for Options.SkipWebPlatform.
func Bool(b bool) *bool {
	return &b
}
