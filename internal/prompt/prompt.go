// Package prompt implements the manual-mode questions asked before a run:
// which channel, whether to resume an unfinished project, the new topic, and
// whether to reset a project whose files changed.
package prompt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"

	"oktabot/internal/project"
	"oktabot/internal/services"
)

// DefaultTargetLength is offered when asking for the script length.
const DefaultTargetLength = 1500

const newProjectOption = "Start a new project"

// maxListedMismatches bounds the changed-file list shown before a reset.
const maxListedMismatches = 10

// Terminal asks questions with pterm's interactive printers.
type Terminal struct {
	out     io.Writer
	choose  func(label string, options []string) (string, error)
	input   func(label, fallback string) (string, error)
	confirm func(label string) (bool, error)
}

// New returns a Terminal writing to stdout.
func New() *Terminal {
	return &Terminal{
		out: os.Stdout,
		choose: func(label string, options []string) (string, error) {
			return pterm.DefaultInteractiveSelect.
				WithDefaultText(label).
				WithOptions(options).
				WithMaxHeight(12).
				Show()
		},
		input: func(label, fallback string) (string, error) {
			printer := pterm.DefaultInteractiveTextInput.WithDefaultText(label)
			if fallback != "" {
				printer = printer.WithDefaultValue(fallback)
			}
			return printer.Show()
		},
		confirm: func(label string) (bool, error) {
			return pterm.DefaultInteractiveConfirm.WithDefaultText(label).WithDefaultValue(false).Show()
		},
	}
}

// Interactive reports whether stdin and stdout are both terminals.
func Interactive() bool {
	in, out := os.Stdin.Fd(), os.Stdout.Fd()
	return (isatty.IsTerminal(in) || isatty.IsCygwinTerminal(in)) &&
		(isatty.IsTerminal(out) || isatty.IsCygwinTerminal(out))
}

// SelectChannel asks which configured channel to produce for. A single
// channel is chosen without asking.
func (t *Terminal) SelectChannel(ctx context.Context, channels []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch len(channels) {
	case 0:
		return "", services.Wrap(services.ErrConfiguration, "prompt", "select channel", "no channels configured", nil)
	case 1:
		fmt.Fprintf(t.out, "Channel: %s\n", channels[0])
		return channels[0], nil
	}
	return t.choose("Select a channel", channels)
}

// SelectResume offers unfinished projects. It returns -1 for a new project.
func (t *Terminal) SelectResume(ctx context.Context, projects []project.Summary) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	if len(projects) == 0 {
		return -1, nil
	}
	options := make([]string, 0, len(projects)+1)
	options = append(options, newProjectOption)
	for i, summary := range projects {
		options = append(options, resumeLabel(i, summary))
	}
	choice, err := t.choose("Resume an unfinished project?", options)
	if err != nil {
		return -1, err
	}
	for i, option := range options[1:] {
		if option == choice {
			return i, nil
		}
	}
	return -1, nil
}

// AskTopic asks for the video topic and target script length in characters.
func (t *Terminal) AskTopic(ctx context.Context) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	topic, err := t.input("Video topic", "")
	if err != nil {
		return "", 0, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", 0, services.Wrap(services.ErrValidation, "prompt", "topic", "a topic is required", nil)
	}
	raw, err := t.input("Target script length (characters)", strconv.Itoa(DefaultTargetLength))
	if err != nil {
		return "", 0, err
	}
	length, err := ParseLength(raw)
	if err != nil {
		return "", 0, err
	}
	return topic, length, nil
}

// ConfirmReset lists the changed files and asks before discarding the
// project's generated output.
func (t *Terminal) ConfirmReset(ctx context.Context, proj *project.Project, mismatches []project.Mismatch) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(t.out, "%d file(s) in %s changed since they were generated:\n", len(mismatches), proj.Name())
	for i, m := range mismatches {
		if i == maxListedMismatches {
			fmt.Fprintf(t.out, "  ... %d more\n", len(mismatches)-maxListedMismatches)
			break
		}
		fmt.Fprintf(t.out, "  %s (%s)\n", m.Path, m.Reason)
	}
	return t.confirm("Delete the project's files and start over?")
}

// ParseLength validates a target length answer. Blank input takes the
// default.
func ParseLength(raw string) (int, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", ""))
	if raw == "" {
		return DefaultTargetLength, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, services.Wrap(services.ErrValidation, "prompt", "target length",
			fmt.Sprintf("%q is not a positive number of characters", raw), nil)
	}
	return n, nil
}

func resumeLabel(i int, s project.Summary) string {
	label := fmt.Sprintf("%d. %s", i+1, s.Name)
	if s.LastStep != "" {
		label += " (last step: " + s.LastStep
		if !s.Updated.IsZero() {
			label += ", " + s.Updated.Format("2006-01-02 15:04")
		}
		label += ")"
	}
	return label
}
