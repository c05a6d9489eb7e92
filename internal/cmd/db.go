package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/platform"
	"github.com/adamancini/nudge/internal/source"
	"github.com/adamancini/nudge/internal/types"
	"github.com/adamancini/nudge/internal/version"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the Postgres release table",
		Long: `Db manages the app_versions table read by the postgres source type.
The connection comes from source.postgres in the Nudgefile.`,
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBPublishCmd())
	cmd.AddCommand(newDBListCmd())

	return cmd
}

// openPostgres opens and pings the Nudgefile's Postgres source.
func openPostgres(cmd *cobra.Command) (*source.PostgresSource, error) {
	n, err := loadNudgefile(cmd)
	if err != nil {
		return nil, err
	}
	if n.Source.Type != types.SourceTypePostgres {
		return nil, fmt.Errorf("source type is %s, not postgres", n.Source.Type)
	}

	pg, err := source.OpenPostgresSource(n.Source.Postgres.DSN, n.Source.Postgres.Table, source.Options{
		CurrentVersion: n.App.CurrentVersion,
	})
	if err != nil {
		return nil, err
	}
	if err := pg.Initialize(cmd.Context()); err != nil {
		_ = pg.Dispose(cmd.Context())
		return nil, err
	}
	return pg, nil
}

func newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the release table if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := openPostgres(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = pg.Dispose(cmd.Context()) }()

			if err := pg.Migrate(cmd.Context()); err != nil {
				return err
			}

			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			w.Printf("Release table ready.\n")
			return nil
		},
	}
}

func newDBPublishCmd() *cobra.Command {
	var (
		row      source.AppVersion
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "publish <platform> <version>",
		Short: "Publish or update a release",
		Example: `  nudge db publish ios 1.2.0 --notes "Dark mode" --rollout 25
  nudge db publish android 2.0.0 --mandatory --min-supported 1.5.0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := platform.Parse(args[0])
			if err != nil {
				return err
			}
			v := version.Normalize(args[1])
			if !version.IsValid(v) {
				return fmt.Errorf("invalid version %q", args[1])
			}
			if row.MinSupportedVersion != "" && !version.IsValid(version.Normalize(row.MinSupportedVersion)) {
				return fmt.Errorf("invalid minimum supported version %q", row.MinSupportedVersion)
			}
			if row.RolloutPercent < 0 || row.RolloutPercent > 100 {
				return fmt.Errorf("rollout %d is outside 0-100", row.RolloutPercent)
			}

			pg, err := openPostgres(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = pg.Dispose(cmd.Context()) }()

			row.Platform = p.String()
			row.Version = v
			row.MinSupportedVersion = version.Normalize(row.MinSupportedVersion)
			row.IsActive = !inactive
			if err := pg.Publish(cmd.Context(), row); err != nil {
				return err
			}

			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			w.Printf("Published %s %s.\n", p, v)
			return nil
		},
	}

	cmd.Flags().StringVar(&row.ReleaseNotes, "notes", "", "Release notes")
	cmd.Flags().BoolVar(&row.IsMandatory, "mandatory", false, "Mark the release as required")
	cmd.Flags().StringVar(&row.MinSupportedVersion, "min-supported", "", "Oldest version still supported")
	cmd.Flags().IntVar(&row.RolloutPercent, "rollout", 100, "Percentage of installations offered the release")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Store the release without offering it")

	return cmd
}

func newDBListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <platform>",
		Short: "List active releases, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := platform.Parse(args[0])
			if err != nil {
				return err
			}

			pg, err := openPostgres(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = pg.Dispose(cmd.Context()) }()

			rows, err := pg.Versions(cmd.Context(), p)
			if err != nil {
				return err
			}

			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			if w.Structured() {
				return w.Write(rows)
			}
			if len(rows) == 0 {
				w.Printf("No active releases for %s.\n", p)
				return nil
			}
			out := cmd.OutOrStdout()
			for _, r := range rows {
				flags := ""
				if r.IsMandatory {
					flags += " mandatory"
				}
				if r.RolloutPercent < 100 {
					flags += fmt.Sprintf(" rollout=%d%%", r.RolloutPercent)
				}
				_, _ = fmt.Fprintf(out, "%-12s %s%s\n", r.Version, r.CreatedAt.Format("2006-01-02"), flags)
			}
			return nil
		},
	}
}
