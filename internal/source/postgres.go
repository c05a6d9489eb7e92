package source

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/storeurl"
	"github.com/adamancini/nudge/internal/version"
)

// DefaultVersionsTable is the table read by PostgresSource.
const DefaultVersionsTable = "app_versions"

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// AppVersion is one published release row.
type AppVersion struct {
	ID                  int64     `db:"id" json:"id"`
	Platform            string    `db:"platform" json:"platform"`
	Version             string    `db:"version" json:"version"`
	ReleaseNotes        string    `db:"release_notes" json:"release_notes"`
	IsMandatory         bool      `db:"is_mandatory" json:"is_mandatory"`
	MinSupportedVersion string    `db:"min_supported_version" json:"min_supported_version"`
	RolloutPercent      int       `db:"rollout_percent" json:"rollout_percent"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// PostgresSource reads releases from an app_versions table. The latest
// version is the highest active version for the platform, compared
// numerically rather than by insertion order.
type PostgresSource struct {
	base

	db    *sqlx.DB
	table string
	owned bool
}

// NewPostgresSource creates a source over an existing connection pool.
// The caller keeps ownership of db.
func NewPostgresSource(db *sqlx.DB, table string, opts Options) (*PostgresSource, error) {
	if table == "" {
		table = DefaultVersionsTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresSource{base: base{opts: opts}, db: db, table: table}, nil
}

// OpenPostgresSource opens a pool for dsn. No connection is made until
// Initialize; Dispose closes the pool.
func OpenPostgresSource(dsn, table string, opts Options) (*PostgresSource, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s, err := NewPostgresSource(db, table, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// Initialize verifies the connection.
func (s *PostgresSource) Initialize(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// Dispose closes the pool if the source opened it. Repeated calls are no-ops.
func (s *PostgresSource) Dispose(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	s.owned = false
	return s.db.Close()
}

// Migrate creates the versions table if it does not exist.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			platform VARCHAR(20) NOT NULL,
			version VARCHAR(50) NOT NULL,
			release_notes TEXT NOT NULL DEFAULT '',
			is_mandatory BOOLEAN NOT NULL DEFAULT FALSE,
			min_supported_version VARCHAR(50) NOT NULL DEFAULT '',
			rollout_percent INTEGER NOT NULL DEFAULT 100,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (platform, version)
		)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// Publish inserts or replaces a release row.
func (s *PostgresSource) Publish(ctx context.Context, v AppVersion) error {
	if v.RolloutPercent == 0 {
		v.RolloutPercent = 100
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (platform, version, release_notes, is_mandatory, min_supported_version, rollout_percent, is_active)
		VALUES (:platform, :version, :release_notes, :is_mandatory, :min_supported_version, :rollout_percent, :is_active)
		ON CONFLICT (platform, version) DO UPDATE SET
			release_notes = EXCLUDED.release_notes,
			is_mandatory = EXCLUDED.is_mandatory,
			min_supported_version = EXCLUDED.min_supported_version,
			rollout_percent = EXCLUDED.rollout_percent,
			is_active = EXCLUDED.is_active`, s.table)
	if _, err := s.db.NamedExecContext(ctx, query, v); err != nil {
		return fmt.Errorf("publish %s %s: %w", v.Platform, v.Version, err)
	}
	return nil
}

// Versions returns the active releases for p, newest first.
func (s *PostgresSource) Versions(ctx context.Context, p platform.Platform) ([]AppVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, platform, version, release_notes, is_mandatory,
		       min_supported_version, rollout_percent, is_active, created_at
		FROM %s
		WHERE platform = $1 AND is_active = TRUE
	`, s.table)

	var rows []AppVersion
	if err := s.db.SelectContext(ctx, &rows, query, p.String()); err != nil {
		return nil, fmt.Errorf("get app versions: %w", err)
	}
	sortNewestFirst(rows)
	return rows, nil
}

// sortNewestFirst orders rows by version, highest first.
func sortNewestFirst(rows []AppVersion) {
	slices.SortStableFunc(rows, func(a, b AppVersion) int {
		return version.Compare(b.Version, a.Version)
	})
}

// latest returns the newest active release for p, or ErrNoRelease.
func (s *PostgresSource) latest(ctx context.Context, p platform.Platform) (AppVersion, error) {
	rows, err := s.Versions(ctx, p)
	if err != nil {
		return AppVersion{}, err
	}
	if len(rows) == 0 {
		return AppVersion{}, fmt.Errorf("%s: %w", p, ErrNoRelease)
	}
	return rows[0], nil
}

// find returns the active release equal to v.
func (s *PostgresSource) find(ctx context.Context, p platform.Platform, v string) (AppVersion, bool, error) {
	rows, err := s.Versions(ctx, p)
	if err != nil {
		return AppVersion{}, false, err
	}
	for _, r := range rows {
		if version.Compare(r.Version, v) == 0 {
			return r, true, nil
		}
	}
	return AppVersion{}, false, nil
}

func (s *PostgresSource) LatestVersion(ctx context.Context, p platform.Platform) (string, error) {
	rows, err := s.Versions(ctx, p)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].Version, nil
}

func (s *PostgresSource) AppStoreConfig(ctx context.Context) (storeurl.Config, error) {
	return s.storeConfig(storeurl.Config{}), nil
}

// IsUpdateMandatory is true when the latest row is flagged mandatory or the
// current version is below its minimum supported version.
func (s *PostgresSource) IsUpdateMandatory(ctx context.Context, current, latest string) (bool, error) {
	p := s.platformFor(ctx)
	row, ok, err := s.find(ctx, p, latest)
	if err != nil || !ok {
		return false, err
	}
	if row.IsMandatory {
		return true, nil
	}
	return row.MinSupportedVersion != "" && version.Compare(current, row.MinSupportedVersion) < 0, nil
}

func (s *PostgresSource) ChangeLog(ctx context.Context, v string) (string, error) {
	p := s.platformFor(ctx)
	row, _, err := s.find(ctx, p, v)
	return row.ReleaseNotes, err
}

func (s *PostgresSource) MinimumSupportedVersion(ctx context.Context, p platform.Platform) (string, error) {
	row, err := s.latest(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNoRelease) {
			return "", nil
		}
		return "", err
	}
	return row.MinSupportedVersion, nil
}

func (s *PostgresSource) IsVersionAvailableForUser(ctx context.Context, v string, p platform.Platform) (bool, error) {
	row, ok, err := s.find(ctx, p, v)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	percent := row.RolloutPercent
	if percent <= 0 {
		percent = 100
	}
	return s.availableFor(row.Version, percent), nil
}
