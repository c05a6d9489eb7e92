package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/output"
	"github.com/adamancini/nudge/internal/provider"
)

func newRemindCmd() *cobra.Command {
	var clearReminder bool

	cmd := &cobra.Command{
		Use:   "remind",
		Short: `Record a "remind me later" choice`,
		Long: `Remind suppresses the update prompt for remind_later_duration from now and
bumps the dismiss counter. Use --clear to end the window early.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close(cmd.Context()) }()

			w, err := newWriter(cmd)
			if err != nil {
				return err
			}

			if clearReminder {
				if err := s.engine.ClearRemindMeLater(cmd.Context()); err != nil {
					return err
				}
				w.Printf("Reminder cleared.\n")
				return nil
			}

			if err := s.engine.SetRemindMeLater(cmd.Context()); err != nil {
				return err
			}
			until := time.Now().Add(s.engine.Options().RemindLaterDuration)
			w.Printf("Prompts suppressed until %s.\n", until.Format(time.RFC1123))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearReminder, "clear", false, "Clear the remind-later window")

	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget all recorded check state",
		Long: `Reset clears the reminder, sets the last check time to the epoch and wipes
every stored preference the store supports clearing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close(cmd.Context()) }()

			if err := s.engine.ResetVersionCheckData(cmd.Context()); err != nil {
				return err
			}

			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			w.Printf("Check state reset.\n")
			return nil
		},
	}
}

func newPrefsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prefs",
		Short: "Show stored check state",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close(cmd.Context()) }()

			p, err := s.engine.Preferences(cmd.Context())
			if err != nil {
				return err
			}

			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			if w.Structured() {
				return w.Write(p)
			}
			return w.Write(prefsFields(p))
		},
	}
}

func prefsFields(p provider.Preferences) output.KeyValues {
	return output.KeyValues{
		{Key: "last_check_time", Value: formatMillis(p.LastCheckTime)},
		{Key: "remind_later_time", Value: formatMillis(p.RemindLaterTime)},
		{Key: "dismiss_count", Value: p.DismissCount},
		{Key: "last_shown_version", Value: p.LastShownVersion},
		{Key: "auto_update_enabled", Value: p.AutoUpdateEnabled},
		{Key: "installation_id", Value: p.InstallationID},
	}
}

func formatMillis(ms *int64) string {
	if ms == nil {
		return ""
	}
	return time.UnixMilli(*ms).Format(time.RFC3339)
}
