package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/output"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show nudge build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			if !w.Structured() {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "nudge version %s (commit %s, built %s, %s/%s)\n",
					nudgeVersion, nudgeCommit, nudgeDate, runtime.GOOS, runtime.GOARCH)
				return err
			}
			return w.Write(output.KeyValues{
				{Key: "version", Value: nudgeVersion},
				{Key: "commit", Value: nudgeCommit},
				{Key: "date", Value: nudgeDate},
				{Key: "os", Value: runtime.GOOS},
				{Key: "arch", Value: runtime.GOARCH},
			})
		},
	}
}
