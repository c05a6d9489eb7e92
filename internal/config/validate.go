// Validation rules here must stay in sync with the typed constants in
// internal/types and the starter files in internal/templates.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/adamancini/nudge/internal/logging"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/storeurl"
	"github.com/adamancini/nudge/internal/types"
	"github.com/adamancini/nudge/internal/version"
)

// ValidationError represents a Nudgefile validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the Nudgefile for required fields and valid values.
func Validate(n *Nudgefile) error {
	var errs []error

	if n.Version != 1 {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (must be 1)", n.Version),
		})
	}

	errs = append(errs, validateApp(n.App)...)
	errs = append(errs, validateStore(n.Store)...)
	errs = append(errs, validateSource(n.Source)...)
	errs = append(errs, validatePreferences(n.Preferences)...)
	errs = append(errs, validateCheck(n.Check)...)
	errs = append(errs, validateLog(n.Log)...)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(msgs, "\n  - "))
	}

	return nil
}

func validateApp(app AppConfig) []error {
	if app.CurrentVersion == "" {
		return []error{ValidationError{Field: "app.current_version", Message: "is required"}}
	}
	if !version.IsValid(version.Normalize(app.CurrentVersion)) {
		return []error{ValidationError{
			Field:   "app.current_version",
			Message: fmt.Sprintf("invalid version %q (expected MAJOR.MINOR.PATCH[.BUILD])", app.CurrentVersion),
		}}
	}
	return nil
}

func validateStore(s storeurl.Config) []error {
	var errs []error
	if s.IOSAppStoreID != "" && !storeurl.IsValidAppStoreID(s.IOSAppStoreID) {
		errs = append(errs, ValidationError{
			Field:   "store.ios_app_store_id",
			Message: fmt.Sprintf("%q is not a 9 or 10 digit App Store ID", s.IOSAppStoreID),
		})
	}
	if s.AndroidPackageName != "" && !storeurl.IsValidPackageName(s.AndroidPackageName) {
		errs = append(errs, ValidationError{
			Field:   "store.android_package_name",
			Message: fmt.Sprintf("%q is not a valid package name", s.AndroidPackageName),
		})
	}
	for field, raw := range map[string]string{
		"store.ios_store_url":     s.IOSStoreURL,
		"store.android_store_url": s.AndroidStoreURL,
	} {
		if raw != "" {
			if err := validateURL(field, raw); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func validateSource(s SourceConfig) []error {
	if err := s.Type.Validate(); err != nil {
		return []error{ValidationError{Field: "source.type", Message: err.Error()}}
	}

	var errs []error
	required := func(field, value string) {
		if value == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is required for source type " + s.Type.String()})
		}
	}

	switch s.Type {
	case types.SourceTypeManifest:
		required("source.manifest.path", s.Manifest.Path)
	case types.SourceTypeHTTP:
		required("source.http.url", s.HTTP.URL)
		if s.HTTP.URL != "" {
			if err := validateURL("source.http.url", s.HTTP.URL); err != nil {
				errs = append(errs, err)
			}
		}
	case types.SourceTypeGitHub:
		required("source.github.owner", s.GitHub.Owner)
		required("source.github.repo", s.GitHub.Repo)
	case types.SourceTypePostgres:
		required("source.postgres.dsn", s.Postgres.DSN)
	case types.SourceTypeS3:
		required("source.s3.bucket", s.S3.Bucket)
		required("source.s3.key", s.S3.Key)
	}
	return errs
}

func validatePreferences(p PreferencesConfig) []error {
	if err := p.Type.Validate(); err != nil {
		return []error{ValidationError{Field: "preferences.type", Message: err.Error()}}
	}
	if p.Type == types.StoreTypeRedis && p.Redis.URL == "" {
		return []error{ValidationError{Field: "preferences.redis.url", Message: "is required for preferences type redis"}}
	}
	return nil
}

func validateCheck(c CheckConfig) []error {
	var errs []error
	if c.MinCheckInterval < 0 {
		errs = append(errs, ValidationError{Field: "check.min_check_interval", Message: "must not be negative"})
	}
	if c.RemindLaterDuration < 0 {
		errs = append(errs, ValidationError{Field: "check.remind_later_duration", Message: "must not be negative"})
	}
	if c.Platform != "" {
		if _, err := platform.Parse(c.Platform); err != nil {
			errs = append(errs, ValidationError{Field: "check.platform", Message: err.Error()})
		}
	}
	return errs
}

func validateLog(l LogConfig) []error {
	var errs []error
	if l.Level != "" {
		if _, err := logging.ParseLevel(l.Level); err != nil {
			errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
		}
	}
	if l.Format != "" {
		if _, err := logging.ParseFormat(l.Format); err != nil {
			errs = append(errs, ValidationError{Field: "log.format", Message: err.Error()})
		}
	}
	return errs
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{Field: field, Message: fmt.Sprintf("%q is not an http(s) URL", raw)}
	}
	return nil
}
