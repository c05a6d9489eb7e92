// Package source implements provider.DataSource backends: in-memory and
// file manifests, manifests fetched over HTTP or from S3, GitHub releases and
// a Postgres app_versions table.
package source

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/storeurl"
)

// ErrNoRelease is returned by backend lookups that find nothing published.
// LatestVersion reports it as an empty version instead.
var ErrNoRelease = errors.New("no release published")

// Options carries what a source knows about the running installation.
type Options struct {
	CurrentVersion string
	// FormattedVersion is the display form; CurrentVersion when empty.
	FormattedVersion string
	// Platform pins the platform reported by CurrentPlatform. Empty leaves
	// the choice to the caller's detector.
	Platform platform.Platform
	// InstallID keys rollout bucketing. Without one every rollout is open.
	InstallID string
	// Store fields take precedence over those reported by the backend.
	Store storeurl.Config
}

// base implements the parts of provider.DataSource that come from Options.
type base struct {
	opts Options
}

func (b *base) CurrentVersion(ctx context.Context) (string, error) {
	if b.opts.CurrentVersion == "" {
		return "", errors.New("current version is not configured")
	}
	return b.opts.CurrentVersion, nil
}

func (b *base) FormattedVersion(ctx context.Context) (string, error) {
	if b.opts.FormattedVersion != "" {
		return b.opts.FormattedVersion, nil
	}
	return b.CurrentVersion(ctx)
}

// CurrentPlatform returns the pinned platform, or "" when none is pinned.
func (b *base) CurrentPlatform(ctx context.Context) (platform.Platform, error) {
	return b.opts.Platform, nil
}

// platformFor returns the platform a hook without a platform argument
// answers for: the pinned one, else the one the engine put in ctx.
func (b *base) platformFor(ctx context.Context) platform.Platform {
	if b.opts.Platform != "" {
		return b.opts.Platform
	}
	return platform.FromContext(ctx)
}

// storeConfig layers the configured store fields over the backend's.
func (b *base) storeConfig(backend storeurl.Config) storeurl.Config {
	return b.opts.Store.Merge(backend)
}

// availableFor reports whether installID falls inside a rollout percentage.
func (b *base) availableFor(v string, percent int) bool {
	if percent >= 100 || b.opts.InstallID == "" {
		return true
	}
	return rolloutBucket(b.opts.InstallID, v) < percent
}

// rolloutBucket maps an installation and version to a stable bucket in [0, 100).
func rolloutBucket(installID, version string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(installID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(version))
	return int(h.Sum32() % 100)
}
