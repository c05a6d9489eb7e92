package cmd

import (
	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for nudge.

To load completions:

Bash:
  $ source <(nudge completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ nudge completion bash > /etc/bash_completion.d/nudge
  # macOS:
  $ nudge completion bash > $(brew --prefix)/etc/bash_completion.d/nudge

Zsh:
  $ nudge completion zsh > "${fpath[1]}/_nudge"

Fish:
  $ nudge completion fish > ~/.config/fish/completions/nudge.fish

PowerShell:
  PS> nudge completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
