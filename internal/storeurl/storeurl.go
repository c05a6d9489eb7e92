// Package storeurl maps a platform and store configuration to a storefront link.
package storeurl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/adamancini/nudge/internal/platform"
)

const (
	appStoreBase  = "https://apps.apple.com/app/id"
	playStoreBase = "https://play.google.com/store/apps/details?id="
)

var (
	appStoreIDPattern  = regexp.MustCompile(`^\d{9,10}$`)
	packageNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*(\.[a-zA-Z][a-zA-Z0-9_]*)+$`)
)

// Config identifies the application in each storefront.
type Config struct {
	IOSAppStoreID      string `yaml:"ios_app_store_id,omitempty" toml:"ios_app_store_id,omitempty" json:"ios_app_store_id,omitempty"`
	AndroidPackageName string `yaml:"android_package_name,omitempty" toml:"android_package_name,omitempty" json:"android_package_name,omitempty"`
	IOSStoreURL        string `yaml:"ios_store_url,omitempty" toml:"ios_store_url,omitempty" json:"ios_store_url,omitempty"`
	AndroidStoreURL    string `yaml:"android_store_url,omitempty" toml:"android_store_url,omitempty" json:"android_store_url,omitempty"`
}

// IsZero returns true if no store field is set.
func (c Config) IsZero() bool {
	return c == Config{}
}

// Merge returns c with empty fields filled from other.
func (c Config) Merge(other Config) Config {
	if c.IOSAppStoreID == "" {
		c.IOSAppStoreID = other.IOSAppStoreID
	}
	if c.AndroidPackageName == "" {
		c.AndroidPackageName = other.AndroidPackageName
	}
	if c.IOSStoreURL == "" {
		c.IOSStoreURL = other.IOSStoreURL
	}
	if c.AndroidStoreURL == "" {
		c.AndroidStoreURL = other.AndroidStoreURL
	}
	return c
}

// Resolve returns the storefront URL for p, or "" if none can be built.
// Explicit override URLs win over identifiers. Identifiers are used even
// when they fail the IsValid* predicates.
func Resolve(p platform.Platform, cfg Config) string {
	switch p {
	case platform.IOS:
		if u := strings.TrimSpace(cfg.IOSStoreURL); u != "" {
			return u
		}
		if id := strings.TrimSpace(cfg.IOSAppStoreID); id != "" {
			return appStoreBase + url.PathEscape(id)
		}
	case platform.Android:
		if u := strings.TrimSpace(cfg.AndroidStoreURL); u != "" {
			return u
		}
		if pkg := strings.TrimSpace(cfg.AndroidPackageName); pkg != "" {
			return playStoreBase + url.QueryEscape(pkg)
		}
	}
	return ""
}

// IsValidAppStoreID reports whether id looks like an App Store numeric ID.
func IsValidAppStoreID(id string) bool {
	return appStoreIDPattern.MatchString(id)
}

// IsValidPackageName reports whether name is a reverse-domain package name.
func IsValidPackageName(name string) bool {
	return packageNamePattern.MatchString(name)
}
