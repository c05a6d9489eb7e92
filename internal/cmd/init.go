package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/config"
	"github.com/adamancini/nudge/internal/manifest"
	"github.com/adamancini/nudge/internal/templates"
	"github.com/adamancini/nudge/internal/types"
)

func newInitCmd() *cobra.Command {
	var templateName string
	var outputPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new Nudgefile from a template",
		Long: `Create a new Nudgefile from a built-in or custom template.

Available templates:
  full       - Every option with its default
  minimal    - Local release manifest with file preferences
  remote     - Manifest served over HTTP by nudge serve

Examples:
  nudge init                              # Interactive mode
  nudge init --template=minimal           # Direct template selection
  nudge init --template=https://...       # Custom template URL
  nudge init --path ./nudge.yaml          # Custom output location`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), templateName, outputPath, force)
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", "", "Template name or URL")
	cmd.Flags().StringVar(&outputPath, "path", "", "Output path for the Nudgefile")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing Nudgefile")

	_ = cmd.RegisterFlagCompletionFunc("template", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var completions []string
		for _, name := range templates.List() {
			completions = append(completions, fmt.Sprintf("%s\t%s", name, templates.GetDescription(name)))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// runInit executes the init workflow. When outputPath is empty the user is
// offered the default location.
func runInit(stdin io.Reader, stdout, stderr io.Writer, templateName, outputPath string, force bool) error {
	reader := bufio.NewReader(stdin)

	askPath := outputPath == "" && !quiet
	if outputPath == "" {
		outputPath = defaultNudgefilePath()
	}
	outputPath = expandHomePath(outputPath)

	if templateName == "" {
		selected, err := selectTemplateInteractive(reader, stdout)
		if err != nil {
			return err
		}
		templateName = selected
	}

	var content []byte
	custom := strings.HasPrefix(templateName, "http://") || strings.HasPrefix(templateName, "https://")
	if custom {
		var err error
		content, err = fetchRemoteTemplate(templateName)
		if err != nil {
			return fmt.Errorf("failed to fetch template: %w", err)
		}
	} else {
		tmpl, err := templates.Get(templateName)
		if err != nil {
			return fmt.Errorf("failed to load template: %w", err)
		}
		content = tmpl.Content
	}

	format := types.FormatYAML
	if custom {
		format = manifest.SniffFormat(content)
		if format == types.FormatUnknown {
			return fmt.Errorf("invalid template: unable to detect format")
		}
	}
	if _, err := config.Parse(content, format); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	if !custom && !quiet {
		_, _ = fmt.Fprintf(stdout, "\nPreview of '%s' template:\n", templateName)
		_, _ = fmt.Fprintln(stdout, strings.Repeat("-", 40))
		lines := strings.Split(string(content), "\n")
		const maxLines = 20
		if len(lines) <= maxLines {
			_, _ = fmt.Fprintln(stdout, string(content))
		} else {
			for _, line := range lines[:maxLines] {
				_, _ = fmt.Fprintln(stdout, line)
			}
			_, _ = fmt.Fprintf(stdout, "... (%d more lines)\n", len(lines)-maxLines)
		}
		_, _ = fmt.Fprintln(stdout, strings.Repeat("-", 40))
	}

	if askPath {
		_, _ = fmt.Fprintf(stdout, "\nWhere should I create the Nudgefile? [%s]: ", outputPath)
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			outputPath = expandHomePath(answer)
		}
	}

	// The file is located by extension first, so keep it in step with the content.
	if format != types.FormatYAML && strings.HasSuffix(outputPath, ".yaml") {
		outputPath = strings.TrimSuffix(outputPath, ".yaml") + "." + format.String()
	}

	if _, err := os.Stat(outputPath); err == nil && !force {
		_, _ = fmt.Fprintf(stderr, "Nudgefile already exists at %s\n", outputPath)
		_, _ = fmt.Fprintf(stdout, "Overwrite? [y/N]: ")
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			_, _ = fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	parentDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", parentDir, err)
	}
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write Nudgefile: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "\nCreated %s\n", outputPath)
	_, _ = fmt.Fprintln(stdout, "\nNext steps:")
	_, _ = fmt.Fprintln(stdout, "  1. Set app.current_version and the store identifiers")
	_, _ = fmt.Fprintln(stdout, "  2. Run 'nudge info' to confirm the release source")
	_, _ = fmt.Fprintln(stdout, "  3. Run 'nudge check' to see whether a prompt is due")

	return nil
}

// selectTemplateInteractive shows a numbered menu of templates.
func selectTemplateInteractive(reader *bufio.Reader, stdout io.Writer) (string, error) {
	templateList := templates.List()

	_, _ = fmt.Fprintln(stdout, "\nSelect a Nudgefile template:")
	for i, name := range templateList {
		_, _ = fmt.Fprintf(stdout, "  %d. %-12s - %s\n", i+1, name, templates.GetDescription(name))
	}
	_, _ = fmt.Fprintf(stdout, "  %d. %-12s - Provide custom template URL\n", len(templateList)+1, "custom")
	_, _ = fmt.Fprintf(stdout, "\nSelect [1-%d]: ", len(templateList)+1)

	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	answer = strings.TrimSpace(answer)

	num, err := strconv.Atoi(answer)
	if err != nil || num < 1 || num > len(templateList)+1 {
		return "", fmt.Errorf("invalid selection: %s", answer)
	}

	if num == len(templateList)+1 {
		_, _ = fmt.Fprint(stdout, "Enter template URL: ")
		url, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read URL: %w", err)
		}
		url = strings.TrimSpace(url)
		if url == "" {
			return "", fmt.Errorf("no template URL given")
		}
		return url, nil
	}

	return templateList[num-1], nil
}

// fetchRemoteTemplate downloads a template from a URL.
func fetchRemoteTemplate(url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return content, nil
}

// defaultNudgefilePath returns the first location FindNudgefile searches.
func defaultNudgefilePath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "nudge", "nudge.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "nudge.yaml"
	}
	return filepath.Join(home, ".config", "nudge", "nudge.yaml")
}
