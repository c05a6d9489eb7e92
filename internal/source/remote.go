package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adamancini/nudge/internal/logging"
	"github.com/adamancini/nudge/internal/manifest"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/types"
)

// DefaultRefreshInterval is how long a fetched manifest is reused.
const DefaultRefreshInterval = 5 * time.Minute

// fetchFunc retrieves manifest bytes. A nil result with a nil error means
// the remote copy is unchanged.
type fetchFunc func(ctx context.Context) ([]byte, types.Format, error)

// remoteManifest caches a manifest fetched from somewhere else.
type remoteManifest struct {
	*ManifestSource

	fetch fetchFunc
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	fetched time.Time
}

func newRemoteManifest(opts Options, fetch fetchFunc) *remoteManifest {
	return &remoteManifest{
		ManifestSource: NewManifestSource(nil, opts),
		fetch:          fetch,
		ttl:            DefaultRefreshInterval,
		now:            time.Now,
	}
}

// SetRefreshInterval sets how long a fetched manifest is reused. Zero or
// negative refetches on every LatestVersion call.
func (r *remoteManifest) SetRefreshInterval(d time.Duration) {
	r.mu.Lock()
	r.ttl = d
	r.mu.Unlock()
}

// Initialize fetches the manifest.
func (r *remoteManifest) Initialize(ctx context.Context) error {
	return r.Refresh(ctx)
}

// Refresh fetches the manifest now.
func (r *remoteManifest) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(ctx)
}

func (r *remoteManifest) refreshLocked(ctx context.Context) error {
	content, format, err := r.fetch(ctx)
	if errors.Is(err, ErrNoRelease) {
		r.fetched = r.now()
		r.SetManifest(&manifest.Manifest{Platforms: map[string]manifest.Release{}})
		logging.Debug("no manifest published", "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	r.fetched = r.now()
	if content == nil && r.Manifest() != nil {
		logging.Debug("manifest unchanged")
		return nil
	}

	if format == types.FormatUnknown {
		format = manifest.SniffFormat(content)
	}
	m, err := manifest.Parse(content, format)
	if err != nil {
		return err
	}
	r.SetManifest(m)
	logging.Debug("manifest fetched", "platforms", len(m.Platforms))
	return nil
}

// LatestVersion refetches a stale manifest before answering.
func (r *remoteManifest) LatestVersion(ctx context.Context, p platform.Platform) (string, error) {
	r.mu.Lock()
	if r.Manifest() == nil || r.now().Sub(r.fetched) >= r.ttl {
		if err := r.refreshLocked(ctx); err != nil {
			r.mu.Unlock()
			return "", err
		}
	}
	r.mu.Unlock()
	return r.ManifestSource.LatestVersion(ctx, p)
}
