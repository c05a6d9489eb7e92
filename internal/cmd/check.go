package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/interactive"
)

func newCheckCmd() *cobra.Command {
	var interactiveMode bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Decide whether the update prompt is due",
		Long: `Check evaluates the update rules and prints the result. A check that decides
to prompt records the check time, so an immediate second check reports
too_soon.

Skip reasons, first match wins:
  web_platform   running on the web while skip_web_platform is set
  no_update      the latest version is not newer than the current one
  remind_later   inside the "remind me later" window, or already shown
  too_soon       less than min_check_interval since the last check
  error          the source or store failed; see the error field

With --interactive a due prompt is shown in the terminal and the answer is
applied: update opens the store page, later starts the remind-later window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, interactiveMode)
		},
	}

	cmd.Flags().BoolVarP(&interactiveMode, "interactive", "i", false, "Show the update dialog when a prompt is due")

	return cmd
}

func runCheck(cmd *cobra.Command, interactiveMode bool) error {
	if interactiveMode && !interactive.IsTerminal() {
		return fmt.Errorf("--interactive requires a terminal")
	}

	w, err := newWriter(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(cmd.Context()) }()

	ctrl := interactive.NewController(s.engine)
	var respondErr error
	if interactiveMode {
		prompter := interactive.NewPrompterWithIO(cmd.InOrStdin(), cmd.OutOrStdout())
		ctrl.OnPrompt(func(ctx context.Context, d interactive.Dialog) {
			respondErr = ctrl.Respond(ctx, prompter.Ask(d))
		})
	}

	res, err := ctrl.Check(cmd.Context())
	if err != nil {
		return err
	}
	if err := w.Write(res); err != nil {
		return err
	}
	return respondErr
}
