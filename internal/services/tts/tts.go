// Package tts synthesizes narration by running a configurable speech engine
// command such as espeak-ng or piper.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"oktabot/internal/config"
	"oktabot/internal/stageexec"
)

// Synthesizer renders text to a WAV file.
type Synthesizer struct {
	command string
	voice   string
	timeout time.Duration
	runner  stageexec.Runner
}

// New builds a synthesizer from the [narration] section.
func New(cfg config.Narration, runner stageexec.Runner) *Synthesizer {
	return &Synthesizer{
		command: cfg.Command,
		voice:   cfg.DefaultVoice,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		runner:  runner,
	}
}

// Synthesize writes narration for text to output. The engine writes to a
// sibling temporary path which is renamed into place on success, so output
// never holds a partial clip. An empty voice uses the configured default.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice, output string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("tts: empty narration text")
	}
	if strings.TrimSpace(voice) == "" {
		voice = s.voice
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("tts: create output dir: %w", err)
	}
	tmp := strings.TrimSuffix(output, filepath.Ext(output)) + ".partial" + filepath.Ext(output)
	defer os.Remove(tmp)

	_, err := s.runner.Run(ctx, stageexec.Invocation{
		Stage:   "narration",
		Command: s.command,
		Values: map[string]string{
			"text":   text,
			"voice":  voice,
			"output": tmp,
		},
		Timeout: s.timeout,
	})
	if err != nil {
		return err
	}
	info, err := os.Stat(tmp)
	if err != nil {
		return fmt.Errorf("tts: engine produced no output: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("tts: engine produced an empty clip")
	}
	if err := os.Rename(tmp, output); err != nil {
		return fmt.Errorf("tts: move clip into place: %w", err)
	}
	return nil
}
