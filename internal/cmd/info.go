package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/output"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show version details without recording a check",
		Long: `Info fetches the current and latest versions, the store link and every
optional detail the source offers. It never writes to the preference store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd)
		},
	}
}

func runInfo(cmd *cobra.Command) error {
	w, err := newWriter(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(cmd.Context()) }()

	ctx := cmd.Context()
	e := s.engine

	info, err := e.VersionInfo(ctx)
	if err != nil {
		return err
	}
	formatted, err := e.FormattedVersion(ctx)
	if err != nil {
		return err
	}
	mandatory, err := e.IsUpdateMandatory(ctx)
	if err != nil {
		return err
	}
	minimum, err := e.MinimumSupportedVersion(ctx)
	if err != nil {
		return err
	}
	supported, err := e.IsCurrentVersionSupported(ctx)
	if err != nil {
		return err
	}
	available, err := e.IsVersionAvailableForUser(ctx)
	if err != nil {
		return err
	}
	changelog, err := e.ChangeLog(ctx)
	if err != nil {
		return err
	}

	fields := output.KeyValues{
		{Key: "platform", Value: info.Platform},
		{Key: "current_version", Value: info.CurrentVersion},
		{Key: "formatted_version", Value: formatted},
		{Key: "latest_version", Value: info.LatestVersion},
		{Key: "update_available", Value: info.UpdateAvailable},
		{Key: "mandatory", Value: mandatory},
		{Key: "minimum_supported_version", Value: minimum},
		{Key: "current_supported", Value: supported},
		{Key: "available_for_user", Value: available},
		{Key: "store_url", Value: info.StoreURL},
		{Key: "installation_id", Value: s.installID},
		{Key: "source", Value: s.nudgefile.Source.Type},
		{Key: "preferences", Value: s.nudgefile.Preferences.Type},
	}

	if w.Structured() {
		fields = append(fields,
			output.Field{Key: "changelog", Value: changelog},
			output.Field{Key: "capabilities", Value: e.Capabilities()})
		return w.Write(fields)
	}

	if err := w.Write(fields); err != nil {
		return err
	}
	if changelog != "" {
		w.Printf("\nChangelog:\n%s\n", changelog)
	}
	return nil
}
