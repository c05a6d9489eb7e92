package source

import (
	"context"
	"errors"
	"sync"

	"github.com/adamancini/nudge/internal/manifest"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/storeurl"
	"github.com/adamancini/nudge/internal/version"
)

var errNoManifest = errors.New("manifest not loaded")

// ManifestSource answers from an in-memory manifest. The manifest can be
// swapped while the source is in use.
type ManifestSource struct {
	base

	mu sync.RWMutex
	m  *manifest.Manifest
}

// NewManifestSource creates a source over m. A nil manifest makes every
// lookup fail until SetManifest is called.
func NewManifestSource(m *manifest.Manifest, opts Options) *ManifestSource {
	return &ManifestSource{base: base{opts: opts}, m: m}
}

// Manifest returns the current manifest.
func (s *ManifestSource) Manifest() *manifest.Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m
}

// SetManifest replaces the manifest.
func (s *ManifestSource) SetManifest(m *manifest.Manifest) {
	s.mu.Lock()
	s.m = m
	s.mu.Unlock()
}

func (s *ManifestSource) release(p platform.Platform) (manifest.Release, error) {
	m := s.Manifest()
	if m == nil {
		return manifest.Release{}, errNoManifest
	}
	r, _ := m.Release(p)
	return r, nil
}

func (s *ManifestSource) LatestVersion(ctx context.Context, p platform.Platform) (string, error) {
	r, err := s.release(p)
	if err != nil {
		return "", err
	}
	return r.Latest, nil
}

func (s *ManifestSource) AppStoreConfig(ctx context.Context) (storeurl.Config, error) {
	m := s.Manifest()
	if m == nil {
		return s.storeConfig(storeurl.Config{}), nil
	}
	return s.storeConfig(m.Store), nil
}

// IsUpdateMandatory is true when the release is flagged mandatory or the
// current version is below the platform minimum.
func (s *ManifestSource) IsUpdateMandatory(ctx context.Context, current, latest string) (bool, error) {
	p := s.platformFor(ctx)
	r, err := s.release(p)
	if err != nil {
		return false, err
	}
	if r.Mandatory && version.Compare(r.Latest, latest) == 0 {
		return true, nil
	}
	return r.Minimum != "" && version.Compare(current, r.Minimum) < 0, nil
}

func (s *ManifestSource) ChangeLog(ctx context.Context, v string) (string, error) {
	p := s.platformFor(ctx)
	r, err := s.release(p)
	if err != nil {
		return "", err
	}
	return r.Notes(v), nil
}

func (s *ManifestSource) MinimumSupportedVersion(ctx context.Context, p platform.Platform) (string, error) {
	r, err := s.release(p)
	if err != nil {
		return "", err
	}
	return r.Minimum, nil
}

// IsVersionAvailableForUser applies the release's rollout percentage to
// the installation ID. Versions other than the platform's latest are
// always available.
func (s *ManifestSource) IsVersionAvailableForUser(ctx context.Context, v string, p platform.Platform) (bool, error) {
	r, err := s.release(p)
	if err != nil {
		return false, err
	}
	if version.Compare(r.Latest, v) != 0 {
		return true, nil
	}
	return s.availableFor(v, r.RolloutPercent()), nil
}
