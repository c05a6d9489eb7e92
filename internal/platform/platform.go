// Package platform identifies the runtime environment an update check runs for.
package platform

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Platform is the target environment whose store and update behavior differ.
type Platform string

const (
	// IOS is Apple's mobile platform.
	IOS Platform = "ios"
	// Android is Google's mobile platform.
	Android Platform = "android"
	// Web is any browser or desktop environment without a storefront.
	Web Platform = "web"
)

// UserAgentEnv names the environment variable consulted by Detect when the
// Go runtime does not identify a mobile OS.
const UserAgentEnv = "NUDGE_USER_AGENT"

// All returns all valid platforms.
func All() []Platform {
	return []Platform{IOS, Android, Web}
}

// Validate checks if the Platform is a valid value.
func (p Platform) Validate() error {
	switch p {
	case IOS, Android, Web:
		return nil
	case "":
		return fmt.Errorf("platform is required")
	default:
		return fmt.Errorf("invalid platform '%s' (must be ios, android, or web)", p)
	}
}

// String returns the string representation of the Platform.
func (p Platform) String() string {
	return string(p)
}

// IsWeb returns true if the platform has no storefront.
func (p Platform) IsWeb() bool {
	return p == Web
}

// Parse parses a string into a Platform.
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Detector reports the current platform.
type Detector func() Platform

// Fixed returns a Detector that always reports p.
func Fixed(p Platform) Detector {
	return func() Platform { return p }
}

// Detect is the default Detector. It trusts runtime.GOOS for mobile targets
// and otherwise sniffs the user agent in NUDGE_USER_AGENT, defaulting to web.
func Detect() Platform {
	if p, ok := fromGOOS(runtime.GOOS); ok {
		return p
	}
	return FromUserAgent(os.Getenv(UserAgentEnv))
}

func fromGOOS(goos string) (Platform, bool) {
	switch goos {
	case "android":
		return Android, true
	case "ios":
		return IOS, true
	}
	return "", false
}

// FromUserAgent guesses the platform from a user-agent string.
func FromUserAgent(ua string) Platform {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "android"):
		return Android
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"),
		strings.Contains(ua, "ipod"), strings.Contains(ua, "ios"):
		return IOS
	default:
		return Web
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying p. The update engine uses it to
// hand its resolved platform to provider hooks whose signatures omit one.
func NewContext(ctx context.Context, p Platform) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the platform stored by NewContext, or "".
func FromContext(ctx context.Context) Platform {
	p, _ := ctx.Value(contextKey{}).(Platform)
	return p
}
