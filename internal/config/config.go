// Package config handles Nudgefile parsing and location resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adamancini/nudge/internal/storeurl"
	"github.com/adamancini/nudge/internal/types"
)

// Duration is a time.Duration written in Go syntax ("90m", "24h").
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AppConfig describes the running application.
type AppConfig struct {
	CurrentVersion   string `yaml:"current_version" toml:"current_version" json:"current_version"`
	FormattedVersion string `yaml:"formatted_version,omitempty" toml:"formatted_version,omitempty" json:"formatted_version,omitempty"`
}

// ManifestConfig locates a manifest file.
type ManifestConfig struct {
	Path string `yaml:"path" toml:"path" json:"path"`
}

// HTTPConfig locates a manifest served over HTTP.
type HTTPConfig struct {
	URL             string   `yaml:"url" toml:"url" json:"url"`
	RefreshInterval Duration `yaml:"refresh_interval,omitempty" toml:"refresh_interval,omitempty" json:"refresh_interval,omitempty"`
}

// GitHubConfig selects a repository whose latest release is the latest version.
type GitHubConfig struct {
	Owner string `yaml:"owner" toml:"owner" json:"owner"`
	Repo  string `yaml:"repo" toml:"repo" json:"repo"`
	Token string `yaml:"token,omitempty" toml:"token,omitempty" json:"token,omitempty"`
}

// PostgresConfig selects an app_versions table.
type PostgresConfig struct {
	DSN   string `yaml:"dsn" toml:"dsn" json:"dsn"`
	Table string `yaml:"table,omitempty" toml:"table,omitempty" json:"table,omitempty"`
}

// S3Config locates a manifest object.
type S3Config struct {
	Bucket          string   `yaml:"bucket" toml:"bucket" json:"bucket"`
	Key             string   `yaml:"key" toml:"key" json:"key"`
	Region          string   `yaml:"region,omitempty" toml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string   `yaml:"endpoint,omitempty" toml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string   `yaml:"access_key_id,omitempty" toml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string   `yaml:"secret_access_key,omitempty" toml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
	RefreshInterval Duration `yaml:"refresh_interval,omitempty" toml:"refresh_interval,omitempty" json:"refresh_interval,omitempty"`
}

// SourceConfig selects the data source. Only the block matching Type is used.
type SourceConfig struct {
	Type     types.SourceType `yaml:"type" toml:"type" json:"type"`
	Manifest ManifestConfig   `yaml:"manifest,omitempty" toml:"manifest,omitempty" json:"manifest,omitempty"`
	HTTP     HTTPConfig       `yaml:"http,omitempty" toml:"http,omitempty" json:"http,omitempty"`
	GitHub   GitHubConfig     `yaml:"github,omitempty" toml:"github,omitempty" json:"github,omitempty"`
	Postgres PostgresConfig   `yaml:"postgres,omitempty" toml:"postgres,omitempty" json:"postgres,omitempty"`
	S3       S3Config         `yaml:"s3,omitempty" toml:"s3,omitempty" json:"s3,omitempty"`
}

// FilePrefsConfig locates the preferences file.
type FilePrefsConfig struct {
	Path string `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty"`
}

// RedisConfig locates the Redis preference store.
type RedisConfig struct {
	URL    string `yaml:"url" toml:"url" json:"url"`
	Prefix string `yaml:"prefix,omitempty" toml:"prefix,omitempty" json:"prefix,omitempty"`
}

// PreferencesConfig selects the preference store.
type PreferencesConfig struct {
	Type  types.StoreType `yaml:"type" toml:"type" json:"type"`
	File  FilePrefsConfig `yaml:"file,omitempty" toml:"file,omitempty" json:"file,omitempty"`
	Redis RedisConfig     `yaml:"redis,omitempty" toml:"redis,omitempty" json:"redis,omitempty"`
}

// CheckConfig tunes the decision engine. Zero values keep its defaults.
type CheckConfig struct {
	MinCheckInterval    Duration `yaml:"min_check_interval,omitempty" toml:"min_check_interval,omitempty" json:"min_check_interval,omitempty"`
	RemindLaterDuration Duration `yaml:"remind_later_duration,omitempty" toml:"remind_later_duration,omitempty" json:"remind_later_duration,omitempty"`
	SkipWebPlatform     *bool    `yaml:"skip_web_platform,omitempty" toml:"skip_web_platform,omitempty" json:"skip_web_platform,omitempty"`
	// Platform pins the platform instead of detecting it.
	Platform string `yaml:"platform,omitempty" toml:"platform,omitempty" json:"platform,omitempty"`
}

// LogConfig sets diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" toml:"format,omitempty" json:"format,omitempty"`
}

// Nudgefile represents the parsed configuration file.
type Nudgefile struct {
	Version     int               `yaml:"version" toml:"version" json:"version"`
	App         AppConfig         `yaml:"app" toml:"app" json:"app"`
	Store       storeurl.Config   `yaml:"store,omitempty" toml:"store,omitempty" json:"store,omitempty"`
	Source      SourceConfig      `yaml:"source" toml:"source" json:"source"`
	Preferences PreferencesConfig `yaml:"preferences,omitempty" toml:"preferences,omitempty" json:"preferences,omitempty"`
	Check       CheckConfig       `yaml:"check,omitempty" toml:"check,omitempty" json:"check,omitempty"`
	Log         LogConfig         `yaml:"log,omitempty" toml:"log,omitempty" json:"log,omitempty"`

	// path is where the Nudgefile was loaded from, empty when built in code.
	path string
}

// Path returns the file the Nudgefile was loaded from.
func (n *Nudgefile) Path() string {
	return n.path
}

// ResolvePath makes a relative path relative to the Nudgefile's directory.
func (n *Nudgefile) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || n.path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(n.path), p)
}

// applyDefaults fills in values a Nudgefile may omit.
func (n *Nudgefile) applyDefaults() {
	if n.Version == 0 {
		n.Version = 1
	}
	n.Preferences.Type = n.Preferences.Type.Default()
}

// FindNudgefile searches for a Nudgefile in the standard locations.
// Returns the path to the first Nudgefile found, or an error if none exists.
func FindNudgefile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified Nudgefile not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Check NUDGEFILE environment variable
	if envPath := os.Getenv("NUDGEFILE"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	// Get home directory (required for standard locations)
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	// Build search paths in order of precedence
	var searchPaths []string

	// XDG_CONFIG_HOME or default
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	searchPaths = append(searchPaths, filepath.Join(xdgConfig, "nudge"))

	// ~/.nudge
	searchPaths = append(searchPaths, filepath.Join(home, ".nudge"))

	// Home directory root
	searchPaths = append(searchPaths, home)

	// File name variants
	var fileNames []string
	for _, base := range []string{"nudge", ".nudge"} {
		for _, ext := range []string{".yaml", ".yml", ".toml", ".json", ""} {
			fileNames = append(fileNames, base+ext)
		}
	}

	for _, dir := range searchPaths {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("no Nudgefile found in standard locations")
}

// Load reads and parses a Nudgefile from the given path. A .env file next
// to it is loaded first so that ${VAR} references can use it.
func Load(path string) (*Nudgefile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read Nudgefile: %w", err)
	}

	if err := loadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	format := detectFormat(path, content)
	if format == types.FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	nudgefile, err := parse(content, format)
	if err != nil {
		return nil, err
	}
	nudgefile.path = path

	if err := Validate(nudgefile); err != nil {
		return nil, err
	}

	return nudgefile, nil
}
