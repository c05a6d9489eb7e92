package config

import (
	"os"
	"testing"
	"time"

	"github.com/adamancini/nudge/internal/types"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  string
		expected types.Format
	}{
		{"yaml extension", "nudge.yaml", "", types.FormatYAML},
		{"yml extension", "nudge.yml", "", types.FormatYAML},
		{"toml extension", "nudge.toml", "", types.FormatTOML},
		{"json extension", "nudge.json", "", types.FormatJSON},
		{"json content", "nudge", `{"version": 1}`, types.FormatJSON},
		{"yaml content", "nudge", `version: 1`, types.FormatYAML},
		{"toml content", "nudge", `version = 1`, types.FormatTOML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFormat(tt.path, []byte(tt.content))
			if got != tt.expected {
				t.Errorf("detectFormat() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple var", "${TEST_VAR}", "test_value"},
		{"var with default", "${MISSING_VAR:-default_value}", "default_value"},
		{"existing var ignores default", "${TEST_VAR:-default_value}", "test_value"},
		{"empty var uses default", "${EMPTY_VAR:-default_value}", "default_value"},
		{"no var", "plain text", "plain text"},
		{"mixed content", "prefix ${TEST_VAR} suffix", "prefix test_value suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(expandEnvVars([]byte(tt.input)))
			if got != tt.expected {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	content := []byte(`
version: 1
app:
  current_version: 1.0.49
  formatted_version: "1.0.49 (build 312)"
store:
  ios_app_store_id: "123456789"
  android_package_name: com.example.app
source:
  type: manifest
  manifest:
    path: releases.yaml
preferences:
  type: memory
check:
  min_check_interval: 30m
  remind_later_duration: 72h
  skip_web_platform: false
  platform: android
log:
  level: debug
  format: json
`)

	n, err := parse(content, types.FormatYAML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if n.Version != 1 {
		t.Errorf("Version = %d, want 1", n.Version)
	}
	if n.App.CurrentVersion != "1.0.49" || n.App.FormattedVersion != "1.0.49 (build 312)" {
		t.Errorf("App = %+v", n.App)
	}
	if n.Store.IOSAppStoreID != "123456789" || n.Store.AndroidPackageName != "com.example.app" {
		t.Errorf("Store = %+v", n.Store)
	}
	if n.Source.Type != types.SourceTypeManifest || n.Source.Manifest.Path != "releases.yaml" {
		t.Errorf("Source = %+v", n.Source)
	}
	if n.Preferences.Type != types.StoreTypeMemory {
		t.Errorf("Preferences.Type = %s", n.Preferences.Type)
	}
	if n.Check.MinCheckInterval.Std() != 30*time.Minute {
		t.Errorf("MinCheckInterval = %v", n.Check.MinCheckInterval.Std())
	}
	if n.Check.RemindLaterDuration.Std() != 72*time.Hour {
		t.Errorf("RemindLaterDuration = %v", n.Check.RemindLaterDuration.Std())
	}
	if n.Check.SkipWebPlatform == nil || *n.Check.SkipWebPlatform {
		t.Error("SkipWebPlatform should be an explicit false")
	}
	if n.Check.Platform != "android" {
		t.Errorf("Platform = %q", n.Check.Platform)
	}
	if n.Log.Level != "debug" || n.Log.Format != "json" {
		t.Errorf("Log = %+v", n.Log)
	}
}

func TestParseTOML(t *testing.T) {
	content := []byte(`
version = 1

[app]
current_version = "2.1.0"

[source]
type = "github"

[source.github]
owner = "acme"
repo = "mobile"

[preferences]
type = "redis"

[preferences.redis]
url = "redis://localhost:6379/0"

[check]
min_check_interval = "2h"
`)

	n, err := parse(content, types.FormatTOML)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if n.Source.GitHub.Owner != "acme" || n.Source.GitHub.Repo != "mobile" {
		t.Errorf("GitHub = %+v", n.Source.GitHub)
	}
	if n.Preferences.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Redis = %+v", n.Preferences.Redis)
	}
	if n.Check.MinCheckInterval.Std() != 2*time.Hour {
		t.Errorf("MinCheckInterval = %v", n.Check.MinCheckInterval.Std())
	}
	if n.Check.SkipWebPlatform != nil {
		t.Error("unset SkipWebPlatform should stay nil")
	}
}

func TestParseJSON(t *testing.T) {
	content := []byte(`{
  "app": {"current_version": "3.0.0"},
  "source": {"type": "s3", "s3": {"bucket": "releases", "key": "manifest.json", "refresh_interval": "10m"}}
}`)

	n, err := parse(content, types.FormatJSON)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if n.Version != 1 {
		t.Errorf("Version = %d, want default 1", n.Version)
	}
	if n.Preferences.Type != types.StoreTypeFile {
		t.Errorf("Preferences.Type = %s, want default file", n.Preferences.Type)
	}
	if n.Source.S3.Bucket != "releases" || n.Source.S3.RefreshInterval.Std() != 10*time.Minute {
		t.Errorf("S3 = %+v", n.Source.S3)
	}
}

func TestParseInvalidDuration(t *testing.T) {
	content := []byte("app:\n  current_version: 1.0.0\ncheck:\n  min_check_interval: soon\n")
	if _, err := parse(content, types.FormatYAML); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestParseEnvVarExpansion(t *testing.T) {
	t.Setenv("NUDGE_TEST_DSN", "postgres://localhost/releases")

	content := []byte(`
app:
  current_version: ${APP_VERSION:-1.2.3}
source:
  type: postgres
  postgres:
    dsn: ${NUDGE_TEST_DSN}
`)

	n, err := Parse(content, types.FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if n.App.CurrentVersion != "1.2.3" {
		t.Errorf("CurrentVersion = %q, want default 1.2.3", n.App.CurrentVersion)
	}
	if n.Source.Postgres.DSN != "postgres://localhost/releases" {
		t.Errorf("DSN = %q", n.Source.Postgres.DSN)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90m")); err != nil {
		t.Fatal(err)
	}
	text, _ := d.MarshalText()
	if string(text) != "1h30m0s" {
		t.Errorf("MarshalText() = %s", text)
	}
	if err := d.UnmarshalText(nil); err != nil || d != 0 {
		t.Errorf("empty duration = %v, %v", d, err)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	if err := loadDotEnv(t.TempDir()); err != nil {
		t.Errorf("loadDotEnv() on empty dir = %v", err)
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/.env", []byte("NUDGE_TEST_KEEP=fromfile\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NUDGE_TEST_KEEP", "fromenv")

	if err := loadDotEnv(dir); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("NUDGE_TEST_KEEP"); got != "fromenv" {
		t.Errorf("NUDGE_TEST_KEEP = %q, .env must not override", got)
	}
}
