package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/config"
	"github.com/adamancini/nudge/internal/logging"
	"github.com/adamancini/nudge/internal/output"
	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/prefs"
	"github.com/adamancini/nudge/internal/provider"
	"github.com/adamancini/nudge/internal/source"
	"github.com/adamancini/nudge/internal/types"
	"github.com/adamancini/nudge/internal/update"
)

// newWriter returns an output writer for the --output flag on cmd's stdout.
func newWriter(cmd *cobra.Command) (*output.Writer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	w := output.NewWriter(cmd.OutOrStdout(), format)
	w.SetQuiet(quiet)
	return w, nil
}

// loadNudgefile finds and loads the Nudgefile, then applies the global
// overrides and its log settings.
func loadNudgefile(cmd *cobra.Command) (*config.Nudgefile, error) {
	path, err := config.FindNudgefile(configPath)
	if err != nil {
		return nil, err
	}

	n, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if currentVersion != "" {
		n.App.CurrentVersion = currentVersion
	}
	if platformName != "" {
		p, err := platform.Parse(platformName)
		if err != nil {
			return nil, err
		}
		n.Check.Platform = p.String()
	}

	if err := configureLogging(cmd, n.Log.Level, n.Log.Format); err != nil {
		return nil, err
	}
	logging.Debug("loaded nudgefile", "path", path, "source", n.Source.Type, "preferences", n.Preferences.Type)
	return n, nil
}

// session is one engine wired from a Nudgefile.
type session struct {
	nudgefile *config.Nudgefile
	source    provider.DataSource
	store     provider.PreferenceStore
	engine    *update.Engine
	installID string
}

// openSession builds the source, store and engine and initializes them.
// The caller must Close the session.
func openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()

	n, err := loadNudgefile(cmd)
	if err != nil {
		return nil, err
	}

	store, installID, err := buildStore(ctx, n)
	if err != nil {
		return nil, err
	}

	src, err := buildSource(ctx, n, installID)
	if err != nil {
		disposeQuietly(ctx, store)
		return nil, err
	}

	engine := update.NewEngine(src, store, engineOptions(n))
	s := &session{nudgefile: n, source: src, store: store, engine: engine, installID: installID}

	if err := engine.Initialize(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// Close disposes the providers.
func (s *session) Close(ctx context.Context) error {
	return s.engine.Dispose(ctx)
}

func disposeQuietly(ctx context.Context, v any) {
	if d, ok := v.(provider.Disposer); ok {
		_ = d.Dispose(ctx)
	}
}

func engineOptions(n *config.Nudgefile) update.Options {
	return update.Options{
		MinCheckInterval:    n.Check.MinCheckInterval.Std(),
		RemindLaterDuration: n.Check.RemindLaterDuration.Std(),
		SkipWebPlatform:     n.Check.SkipWebPlatform,
		Logger:              logging.Logger(),
	}
}

// buildStore returns the preference store and the installation ID used for
// rollout bucketing. Memory stores have no installation ID.
func buildStore(ctx context.Context, n *config.Nudgefile) (provider.PreferenceStore, string, error) {
	switch n.Preferences.Type {
	case types.StoreTypeMemory:
		return prefs.NewMemoryStore(), "", nil

	case types.StoreTypeRedis:
		// The Redis hash is keyed by the ID kept in the local preferences file.
		id, err := localInstallationID(ctx, prefsFilePath(n))
		if err != nil {
			return nil, "", err
		}
		store, err := prefs.NewRedisStoreFromURL(n.Preferences.Redis.URL, n.Preferences.Redis.Prefix, id)
		if err != nil {
			return nil, "", err
		}
		return store, id, nil

	default:
		store, err := fileStore(prefsFilePath(n))
		if err != nil {
			return nil, "", err
		}
		id, err := store.InstallationID(ctx)
		if err != nil {
			return nil, "", err
		}
		return store, id, nil
	}
}

// prefsFilePath resolves preferences.file.path against the Nudgefile. An
// empty result selects the default location.
func prefsFilePath(n *config.Nudgefile) string {
	path := n.Preferences.File.Path
	if path == "" {
		return ""
	}
	return n.ResolvePath(expandHomePath(path))
}

func fileStore(path string) (*prefs.FileStore, error) {
	if path == "" {
		p, err := prefs.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return prefs.NewFileStore(path), nil
}

func localInstallationID(ctx context.Context, path string) (string, error) {
	store, err := fileStore(path)
	if err != nil {
		return "", err
	}
	return store.InstallationID(ctx)
}

// buildSource creates the data source selected by source.type.
func buildSource(ctx context.Context, n *config.Nudgefile, installID string) (provider.DataSource, error) {
	opts := source.Options{
		CurrentVersion:   n.App.CurrentVersion,
		FormattedVersion: n.App.FormattedVersion,
		Platform:         platform.Platform(n.Check.Platform),
		InstallID:        installID,
		Store:            n.Store,
	}

	cfg := n.Source
	switch cfg.Type {
	case types.SourceTypeManifest:
		return source.NewFileSource(n.ResolvePath(expandHomePath(cfg.Manifest.Path)), opts), nil

	case types.SourceTypeHTTP:
		s := source.NewHTTPSource(cfg.HTTP.URL, opts)
		if d := cfg.HTTP.RefreshInterval.Std(); d > 0 {
			s.SetRefreshInterval(d)
		}
		return s, nil

	case types.SourceTypeGitHub:
		token := cfg.GitHub.Token
		if token == "" {
			token = os.Getenv("GITHUB_TOKEN")
		}
		return source.NewGitHubSource(cfg.GitHub.Owner, cfg.GitHub.Repo, opts).WithToken(token), nil

	case types.SourceTypePostgres:
		return source.OpenPostgresSource(cfg.Postgres.DSN, cfg.Postgres.Table, opts)

	case types.SourceTypeS3:
		s, err := source.NewS3SourceFromConfig(ctx, source.S3Config{
			Bucket:          cfg.S3.Bucket,
			Key:             cfg.S3.Key,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, opts)
		if err != nil {
			return nil, err
		}
		if d := cfg.S3.RefreshInterval.Std(); d > 0 {
			s.SetRefreshInterval(d)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
}

// expandHomePath expands ~ to the user's home directory.
func expandHomePath(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
