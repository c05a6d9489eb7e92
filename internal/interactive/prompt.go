// Package interactive binds the update engine to a terminal: it renders the
// update dialog, reads the user's choice and drives the engine's mutators.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/adamancini/nudge/internal/update"
)

// Choice is the user's answer to the update dialog.
type Choice int

const (
	ChoiceSkip        Choice = iota // Dismiss without recording anything
	ChoiceUpdate                    // Open the store page
	ChoiceRemindLater               // Suppress prompts for the remind-later window
)

func (c Choice) String() string {
	switch c {
	case ChoiceUpdate:
		return "update"
	case ChoiceRemindLater:
		return "remind_later"
	default:
		return "skip"
	}
}

// Dialog is everything the update prompt displays.
type Dialog struct {
	Result           update.Result
	FormattedVersion string
	ChangeLog        string
	Mandatory        bool
}

// Prompter renders the update dialog and reads a choice.
type Prompter struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:      in,
		out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Ask shows the dialog and returns the user's choice. EOF counts as skip.
func (p *Prompter) Ask(d Dialog) Choice {
	p.render(d)
	return p.prompt("Update now, remind me later, or skip?")
}

func (p *Prompter) render(d Dialog) {
	info := d.Result.VersionInfo
	current := info.CurrentVersion
	if d.FormattedVersion != "" && d.FormattedVersion != current {
		current = fmt.Sprintf("%s (%s)", current, d.FormattedVersion)
	}

	_, _ = fmt.Fprintf(p.out, "\nUpdate available for %s: %s -> %s\n", info.Platform, current, info.LatestVersion)
	if d.Mandatory {
		_, _ = fmt.Fprintln(p.out, "  ! This update is required.")
	}
	if notes := strings.TrimSpace(d.ChangeLog); notes != "" {
		_, _ = fmt.Fprintln(p.out, "\nWhat's new:")
		for _, line := range strings.Split(notes, "\n") {
			_, _ = fmt.Fprintf(p.out, "  %s\n", strings.TrimRight(line, " \r"))
		}
	}
	if info.StoreURL != "" {
		_, _ = fmt.Fprintf(p.out, "\nStore: %s\n", info.StoreURL)
	}
	_, _ = fmt.Fprintln(p.out)
}

func (p *Prompter) prompt(question string) Choice {
	_, _ = fmt.Fprint(p.out, question, " [u/l/s] ")

	if !p.scanner.Scan() {
		_, _ = fmt.Fprintln(p.out)
		return ChoiceSkip
	}

	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "u", "update":
		return ChoiceUpdate
	case "l", "later":
		return ChoiceRemindLater
	case "s", "skip", "":
		return ChoiceSkip
	default:
		_, _ = fmt.Fprintln(p.out, "Invalid response, skipping.")
		return ChoiceSkip
	}
}
