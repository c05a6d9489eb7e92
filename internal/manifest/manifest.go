// Package manifest reads release manifests: per-platform latest and minimum
// versions, rollout percentages and release notes, plus the storefront
// identifiers used to build store links.
package manifest

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/storeurl"
	"github.com/adamancini/nudge/internal/types"
	"github.com/adamancini/nudge/internal/version"
)

// Release describes what is published for one platform.
type Release struct {
	Latest    string `yaml:"latest" toml:"latest" json:"latest"`
	Minimum   string `yaml:"minimum,omitempty" toml:"minimum,omitempty" json:"minimum,omitempty"`
	Mandatory bool   `yaml:"mandatory,omitempty" toml:"mandatory,omitempty" json:"mandatory,omitempty"`
	// Rollout is the percentage of installations offered Latest. 0 means 100.
	Rollout    int               `yaml:"rollout,omitempty" toml:"rollout,omitempty" json:"rollout,omitempty"`
	Changelog  string            `yaml:"changelog,omitempty" toml:"changelog,omitempty" json:"changelog,omitempty"`
	Changelogs map[string]string `yaml:"changelogs,omitempty" toml:"changelogs,omitempty" json:"changelogs,omitempty"`
}

// RolloutPercent returns the effective rollout percentage.
func (r Release) RolloutPercent() int {
	if r.Rollout <= 0 || r.Rollout > 100 {
		return 100
	}
	return r.Rollout
}

// Notes returns the release notes for v. A versioned entry wins over the
// top-level changelog, which only describes Latest.
func (r Release) Notes(v string) string {
	for key, notes := range r.Changelogs {
		if version.Compare(key, v) == 0 {
			return notes
		}
	}
	if r.Latest != "" && version.Compare(r.Latest, v) == 0 {
		return r.Changelog
	}
	return ""
}

// Manifest is a parsed release manifest.
type Manifest struct {
	Store     storeurl.Config    `yaml:"store" toml:"store" json:"store"`
	Platforms map[string]Release `yaml:"platforms" toml:"platforms" json:"platforms"`
}

// Release returns the release entry for p.
func (m *Manifest) Release(p platform.Platform) (Release, bool) {
	r, ok := m.Platforms[p.String()]
	return r, ok
}

// PlatformNames returns the configured platform keys in sorted order.
func (m *Manifest) PlatformNames() []string {
	names := make([]string, 0, len(m.Platforms))
	for name := range m.Platforms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Load reads and parses a manifest from the given path.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	format := DetectFormat(path, content)
	if format == types.FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	return Parse(content, format)
}

// Parse decodes and validates manifest content.
func Parse(content []byte, format types.Format) (*Manifest, error) {
	var m Manifest
	if err := Decode(content, format, &m); err != nil {
		return nil, err
	}
	if m.Platforms == nil {
		m.Platforms = make(map[string]Release)
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks platform keys, version strings and rollout ranges.
// Every problem is reported, not just the first.
func Validate(m *Manifest) error {
	var errs []string

	if id := m.Store.IOSAppStoreID; id != "" && !storeurl.IsValidAppStoreID(id) {
		errs = append(errs, fmt.Sprintf("store.ios_app_store_id: %q is not a 9 or 10 digit App Store ID", id))
	}
	if pkg := m.Store.AndroidPackageName; pkg != "" && !storeurl.IsValidPackageName(pkg) {
		errs = append(errs, fmt.Sprintf("store.android_package_name: %q is not a valid package name", pkg))
	}

	for _, name := range m.PlatformNames() {
		r := m.Platforms[name]
		field := "platforms." + name

		if err := platform.Platform(name).Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", field, err))
			continue
		}
		if r.Latest != "" && !version.IsValid(version.Normalize(r.Latest)) {
			errs = append(errs, fmt.Sprintf("%s.latest: invalid version %q", field, r.Latest))
		}
		if r.Minimum != "" && !version.IsValid(version.Normalize(r.Minimum)) {
			errs = append(errs, fmt.Sprintf("%s.minimum: invalid version %q", field, r.Minimum))
		}
		if r.Latest != "" && r.Minimum != "" && version.Compare(r.Minimum, r.Latest) > 0 {
			errs = append(errs, fmt.Sprintf("%s.minimum: %s is newer than latest %s", field, r.Minimum, r.Latest))
		}
		if r.Rollout < 0 || r.Rollout > 100 {
			errs = append(errs, fmt.Sprintf("%s.rollout: %d is outside 0-100", field, r.Rollout))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
