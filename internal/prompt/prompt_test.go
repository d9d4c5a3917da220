package prompt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"oktabot/internal/project"
	"oktabot/internal/services"
)

type scripted struct {
	choice   string
	inputs   []string
	confirm  bool
	labels   []string
	selected []string
}

func newTestTerminal(s *scripted) (*Terminal, *bytes.Buffer) {
	var out bytes.Buffer
	return &Terminal{
		out: &out,
		choose: func(label string, options []string) (string, error) {
			s.labels = append(s.labels, label)
			s.selected = options
			return s.choice, nil
		},
		input: func(label, fallback string) (string, error) {
			s.labels = append(s.labels, label)
			if len(s.inputs) == 0 {
				return fallback, nil
			}
			next := s.inputs[0]
			s.inputs = s.inputs[1:]
			return next, nil
		},
		confirm: func(label string) (bool, error) {
			s.labels = append(s.labels, label)
			return s.confirm, nil
		},
	}, &out
}

func TestSelectChannelSkipsPromptForSingleChannel(t *testing.T) {
	s := &scripted{}
	term, out := newTestTerminal(s)
	got, err := term.SelectChannel(context.Background(), []string{"History Bites"})
	if err != nil || got != "History Bites" {
		t.Fatalf("got %q, %v", got, err)
	}
	if len(s.labels) != 0 || !strings.Contains(out.String(), "History Bites") {
		t.Fatalf("unexpected prompt: labels=%v out=%q", s.labels, out.String())
	}
}

func TestSelectChannelRequiresChannels(t *testing.T) {
	term, _ := newTestTerminal(&scripted{})
	if _, err := term.SelectChannel(context.Background(), nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSelectResumeMapsChoiceToIndex(t *testing.T) {
	projects := []project.Summary{
		{Name: "volcanoes", LastStep: "direction", Updated: time.Date(2026, 10, 18, 20, 30, 0, 0, time.UTC)},
		{Name: "deep-sea-life", LastStep: "editing"},
	}
	s := &scripted{choice: "2. deep-sea-life (last step: editing)"}
	term, _ := newTestTerminal(s)

	idx, err := term.SelectResume(context.Background(), projects)
	if err != nil || idx != 1 {
		t.Fatalf("idx=%d err=%v options=%v", idx, err, s.selected)
	}
	if s.selected[0] != newProjectOption || s.selected[1] != "1. volcanoes (last step: direction, 2026-10-18 20:30)" {
		t.Fatalf("unexpected options %v", s.selected)
	}

	s.choice = newProjectOption
	if idx, _ := term.SelectResume(context.Background(), projects); idx != -1 {
		t.Fatalf("new project choice returned %d", idx)
	}
}

func TestAskTopic(t *testing.T) {
	s := &scripted{inputs: []string{"  Deep Sea Life ", "1_200"}}
	term, _ := newTestTerminal(s)
	topic, length, err := term.AskTopic(context.Background())
	if err != nil || topic != "Deep Sea Life" || length != 1200 {
		t.Fatalf("got %q %d %v", topic, length, err)
	}

	term, _ = newTestTerminal(&scripted{inputs: []string{"Volcanoes"}})
	if _, length, err := term.AskTopic(context.Background()); err != nil || length != DefaultTargetLength {
		t.Fatalf("default length: %d %v", length, err)
	}

	term, _ = newTestTerminal(&scripted{inputs: []string{" "}})
	if _, _, err := term.AskTopic(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseLengthRejectsNonPositive(t *testing.T) {
	for _, raw := range []string{"0", "-5", "lots"} {
		if _, err := ParseLength(raw); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("ParseLength(%q) = %v", raw, err)
		}
	}
}

func TestConfirmResetListsChangedFiles(t *testing.T) {
	s := &scripted{confirm: true}
	term, out := newTestTerminal(s)
	proj := &project.Project{Dir: "/tmp/channels/test/volcanoes"}
	ok, err := term.ConfirmReset(context.Background(), proj, []project.Mismatch{
		{Path: "script.txt", Reason: "modified"},
		{Path: "images/I-P1-S1.png", Reason: "missing"},
	})
	if err != nil || !ok {
		t.Fatalf("got %v %v", ok, err)
	}
	text := out.String()
	for _, want := range []string{"2 file(s) in volcanoes", "script.txt (modified)", "images/I-P1-S1.png (missing)"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}
