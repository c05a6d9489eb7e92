// Package types provides type-safe constants for the nudge configuration system.
//
// This package centralizes the enumerated types used by the Nudgefile and the
// release manifest, replacing magic strings with typed constants that provide
// compile-time safety and validation methods.
//
// These types must stay in sync with internal/config/validate.go.
package types

import (
	"fmt"
	"strings"
)

// SourceType selects where version data comes from.
type SourceType string

const (
	// SourceTypeManifest reads a local manifest file.
	SourceTypeManifest SourceType = "manifest"
	// SourceTypeHTTP fetches a manifest over HTTP.
	SourceTypeHTTP SourceType = "http"
	// SourceTypeGitHub uses the latest GitHub release.
	SourceTypeGitHub SourceType = "github"
	// SourceTypePostgres reads an app_versions table.
	SourceTypePostgres SourceType = "postgres"
	// SourceTypeS3 reads a manifest object from S3.
	SourceTypeS3 SourceType = "s3"
)

// AllSourceTypes returns all valid source types.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceTypeManifest, SourceTypeHTTP, SourceTypeGitHub, SourceTypePostgres, SourceTypeS3}
}

// Validate checks if the SourceType is a valid value.
func (s SourceType) Validate() error {
	switch s {
	case SourceTypeManifest, SourceTypeHTTP, SourceTypeGitHub, SourceTypePostgres, SourceTypeS3:
		return nil
	case "":
		return fmt.Errorf("source type is required")
	default:
		return fmt.Errorf("invalid source type '%s' (must be manifest, http, github, postgres, or s3)", s)
	}
}

// String returns the string representation of the SourceType.
func (s SourceType) String() string {
	return string(s)
}

// IsManifestBased returns true if the source reads a manifest document.
func (s SourceType) IsManifestBased() bool {
	return s == SourceTypeManifest || s == SourceTypeHTTP || s == SourceTypeS3
}

// ParseSourceType parses a string into a SourceType.
// Returns an error if the string is not a valid source type.
func ParseSourceType(s string) (SourceType, error) {
	st := SourceType(strings.ToLower(s))
	if err := st.Validate(); err != nil {
		return "", err
	}
	return st, nil
}

// StoreType selects where preferences are persisted.
type StoreType string

const (
	// StoreTypeFile keeps preferences in a JSON file.
	StoreTypeFile StoreType = "file"
	// StoreTypeMemory keeps preferences for the life of the process.
	StoreTypeMemory StoreType = "memory"
	// StoreTypeRedis keeps preferences in a Redis hash.
	StoreTypeRedis StoreType = "redis"
)

// AllStoreTypes returns all valid store types.
func AllStoreTypes() []StoreType {
	return []StoreType{StoreTypeFile, StoreTypeMemory, StoreTypeRedis}
}

// Validate checks if the StoreType is a valid value.
func (s StoreType) Validate() error {
	switch s {
	case StoreTypeFile, StoreTypeMemory, StoreTypeRedis:
		return nil
	case "":
		return fmt.Errorf("preferences type is required")
	default:
		return fmt.Errorf("invalid preferences type '%s' (must be file, memory, or redis)", s)
	}
}

// String returns the string representation of the StoreType.
func (s StoreType) String() string {
	return string(s)
}

// IsPersistent returns true if preferences survive a process restart.
func (s StoreType) IsPersistent() bool {
	return s == StoreTypeFile || s == StoreTypeRedis
}

// Default returns file if the store type is empty, otherwise returns itself.
func (s StoreType) Default() StoreType {
	if s == "" {
		return StoreTypeFile
	}
	return s
}

// ParseStoreType parses a string into a StoreType.
func ParseStoreType(s string) (StoreType, error) {
	st := StoreType(strings.ToLower(s))
	if err := st.Validate(); err != nil {
		return "", err
	}
	return st, nil
}

// Format is the document format of a Nudgefile or manifest.
type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatTOML
	FormatJSON
)

// String returns the lower-case format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatUnknown, fmt.Errorf("invalid format '%s' (must be yaml, toml, or json)", s)
	}
}
