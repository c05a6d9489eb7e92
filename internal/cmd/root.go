package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/logging"
)

var (
	// Global flags
	outputFormat   string
	configPath     string
	currentVersion string
	platformName   string
	logLevel       string
	logFormat      string
	quiet          bool

	nudgeVersion = "dev"
	nudgeCommit  = "none"
	nudgeDate    = "unknown"
)

// Execute runs the nudge CLI.
func Execute(version, commit, date string) error {
	nudgeVersion, nudgeCommit, nudgeDate = version, commit, date
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nudge",
		Short: "Decide when to show an app update prompt",
		Long: `nudge compares the running app version with the latest published release and
decides whether to show an "update available" prompt, throttled by a minimum
check interval and the user's "remind me later" choice.

Describe the app, the release source and where check state is kept in a
Nudgefile (nudge.yaml, nudge.toml or nudge.json).`,
		Version:      nudgeVersion,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(cmd, "", "")
		},
	}

	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to Nudgefile")
	rootCmd.PersistentFlags().StringVar(&currentVersion, "current", "", "Override the running app version")
	rootCmd.PersistentFlags().StringVar(&platformName, "platform", "", "Override the platform: ios, android, web")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (results only)")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newRemindCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newPrefsCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newLatestCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newStoreURLCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newDBCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newVersionCmd())

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("platform", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"ios", "android", "web"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// configureLogging applies the log flags, falling back to the given
// Nudgefile values. Without a level from either, logs stay discarded.
func configureLogging(cmd *cobra.Command, fileLevel, fileFormat string) error {
	levelName := logLevel
	if levelName == "" {
		levelName = fileLevel
	}
	formatName := logFormat
	if formatName == "" {
		formatName = fileFormat
	}
	if levelName == "" && formatName == "" {
		logging.Disable()
		return nil
	}

	level := logging.LevelInfo
	if levelName != "" {
		parsed, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		level = parsed
	}
	format := logging.FormatText
	if formatName != "" {
		parsed, err := logging.ParseFormat(formatName)
		if err != nil {
			return err
		}
		format = parsed
	}

	logging.Configure(level, format, cmd.ErrOrStderr())
	return nil
}
