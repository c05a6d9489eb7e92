package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/output"
	"github.com/adamancini/nudge/internal/version"
)

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Compare two versions",
		Long: `Compare prints -1, 0 or 1 as a is older than, equal to or newer than b.

Segments compare numerically, so 1.0.439 is newer than 1.0.49, and missing
trailing segments count as zero, so 1.0 equals 1.0.0.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWriter(cmd)
			if err != nil {
				return err
			}

			a, b := version.Normalize(args[0]), version.Normalize(args[1])
			result := version.Compare(a, b)
			if !w.Structured() {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), result)
				return err
			}
			return w.Write(output.KeyValues{
				{Key: "a", Value: a},
				{Key: "b", Value: b},
				{Key: "result", Value: result},
				{Key: "update_available", Value: version.IsUpdateAvailable(a, b)},
			})
		},
	}
}

func newLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest <version>...",
		Short: "Print the newest of the given versions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWriter(cmd)
			if err != nil {
				return err
			}

			versions := make([]string, len(args))
			for i, a := range args {
				versions[i] = version.Normalize(a)
			}
			latest := version.Latest(versions)

			if !w.Structured() {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), latest)
				return err
			}
			sorted := append([]string(nil), versions...)
			version.Sort(sorted)
			return w.Write(output.KeyValues{
				{Key: "latest", Value: latest},
				{Key: "sorted", Value: sorted},
			})
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <version>",
		Short: "Check that a version is MAJOR.MINOR.PATCH[.BUILD]",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWriter(cmd)
			if err != nil {
				return err
			}

			v := version.Normalize(args[0])
			valid := version.IsValid(v)
			parsed := version.Parse(v)

			fields := output.KeyValues{
				{Key: "version", Value: v},
				{Key: "valid", Value: valid},
				{Key: "major", Value: parsed.Major},
				{Key: "minor", Value: parsed.Minor},
				{Key: "patch", Value: parsed.Patch},
			}
			if parsed.HasBuild {
				fields = append(fields, output.Field{Key: "build", Value: parsed.Build})
			}
			if err := w.Write(fields); err != nil {
				return err
			}
			if !valid {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return nil
		},
	}
}
