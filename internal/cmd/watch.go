package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/interactive"
	"github.com/adamancini/nudge/internal/logging"
	"github.com/adamancini/nudge/internal/output"
	"github.com/adamancini/nudge/internal/source"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep checking for updates and prompt when one is due",
		Long: `Watch behaves like a long-running app: it checks once at start, then again
every --interval and whenever the release manifest file changes (manifest
source only). SIGHUP also triggers a check.

On a terminal a due prompt opens the update dialog. Otherwise each due prompt
is printed and dismissed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 15*time.Minute, "Time between checks (0 disables the timer)")

	return cmd
}

func runWatch(cmd *cobra.Command, interval time.Duration) error {
	w, err := newWriter(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(cmd.Context()) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := interactive.NewController(s.engine)
	ctrl.OnPrompt(promptHandler(cmd, ctrl, w))

	triggers := make(chan struct{}, 1)
	trigger := func() {
		select {
		case triggers <- struct{}{}:
		default:
		}
	}

	if fs, ok := s.source.(*source.FileSource); ok {
		go func() {
			err := fs.Watch(ctx, func(err error) {
				if err == nil {
					trigger()
				}
			})
			if err != nil {
				logging.Warn("manifest watch stopped", "error", err)
			}
		}()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				trigger()
			}
		}
	}()

	w.Printf("Watching for updates every %s. Press Ctrl-C to stop.\n", interval)
	return ctrl.Run(ctx, interval, triggers)
}

// promptHandler shows the dialog on a terminal, or prints the result and
// dismisses it when there is no one to ask.
func promptHandler(cmd *cobra.Command, ctrl *interactive.Controller, w *output.Writer) interactive.PromptFunc {
	if !interactive.IsTerminal() || w.Structured() {
		return func(ctx context.Context, d interactive.Dialog) {
			if err := w.Write(d.Result); err != nil {
				logging.Warn("failed to write result", "error", err)
			}
			ctrl.Dismiss()
		}
	}

	prompter := interactive.NewPrompterWithIO(cmd.InOrStdin(), cmd.OutOrStdout())
	return func(ctx context.Context, d interactive.Dialog) {
		choice := prompter.Ask(d)
		if err := ctrl.Respond(ctx, choice); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return
		}
		if choice == interactive.ChoiceUpdate {
			w.Printf("Opened %s\n", d.Result.VersionInfo.StoreURL)
		}
	}
}
