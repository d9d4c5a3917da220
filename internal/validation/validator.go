// Package validation runs the gate that must pass before the editing stage:
// every asset the plan requires must exist and pass structural checks.
package validation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"oktabot/internal/assets"
	"oktabot/internal/config"
	"oktabot/internal/logging"
	"oktabot/internal/plan"
)

// Kind groups issues by the remediation they need.
type Kind string

const (
	KindPlan  Kind = "plan"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
	KindMusic Kind = "music"
)

// Issue is one problem found by the gate.
type Issue struct {
	Kind    Kind
	Message string
}

func (i Issue) String() string { return i.Message }

// Report is the gate outcome. It is valid only when no issues were found.
type Report struct {
	Issues []Issue
}

// OK reports whether the gate passed.
func (r Report) OK() bool { return len(r.Issues) == 0 }

// Messages returns the issue texts in discovery order.
func (r Report) Messages() []string {
	out := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		out = append(out, issue.Message)
	}
	return out
}

// Count returns the number of issues of the given kind.
func (r Report) Count(kind Kind) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}

// Music configures the background-music check.
type Music struct {
	Dir        string
	Extensions []string
	Required   bool
}

// MusicFromConfig builds the music check from configuration.
func MusicFromConfig(cfg *config.Config) Music {
	return Music{Dir: cfg.Paths.MusicDir, Extensions: cfg.Music.Extensions, Required: cfg.Music.Required}
}

// AssetVerifier is the subset of assets.Verifier the gate uses.
type AssetVerifier interface {
	VerifyImage(path string) assets.Result
	VerifyAudio(ctx context.Context, path string) assets.Result
}

// Validator checks a project's assets before editing.
type Validator struct {
	verifier AssetVerifier
	music    Music
	logger   *slog.Logger
}

// New builds a validator.
func New(verifier AssetVerifier, music Music, logger *slog.Logger) *Validator {
	return &Validator{
		verifier: verifier,
		music:    music,
		logger:   logging.NewComponentLogger(logger, "validation"),
	}
}

// ValidateAll checks the plan, every required narration and image file, and the
// music folder. Only a plan failure stops the sequence early; all other issues
// accumulate.
func (v *Validator) ValidateAll(ctx context.Context, planPath, audioDir, imageDir string) Report {
	var report Report
	logger := logging.WithContext(ctx, v.logger)

	p, planIssues := loadPlan(planPath)
	if len(planIssues) > 0 {
		report.Issues = append(report.Issues, planIssues...)
		v.logResult(logger, report)
		return report
	}

	required := p.RequiredAssets()
	report.Issues = append(report.Issues, v.checkAudio(ctx, required.Audio, audioDir)...)
	report.Issues = append(report.Issues, v.checkImages(required.Images, imageDir)...)
	report.Issues = append(report.Issues, v.checkMusic(logger)...)

	v.logResult(logger, report)
	return report
}

func loadPlan(path string) (*plan.Plan, []Issue) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, []Issue{{Kind: KindPlan, Message: "Project file not found: " + path}}
		}
		return nil, []Issue{{Kind: KindPlan, Message: fmt.Sprintf("Cannot read project file: %v", err)}}
	}
	if problems := plan.Check(raw); len(problems) > 0 {
		issues := make([]Issue, 0, len(problems))
		for _, problem := range problems {
			issues = append(issues, Issue{Kind: KindPlan, Message: problem})
		}
		return nil, issues
	}
	p, err := plan.Parse(raw)
	if err != nil {
		return nil, []Issue{{Kind: KindPlan, Message: fmt.Sprintf("Cannot read project file: %v", err)}}
	}
	return p, nil
}

func (v *Validator) checkAudio(ctx context.Context, files []string, dir string) []Issue {
	if !isDir(dir) {
		return []Issue{{Kind: KindAudio, Message: "Audio folder not found: " + dir}}
	}
	var issues []Issue
	for _, name := range files {
		if res := v.verifier.VerifyAudio(ctx, filepath.Join(dir, name)); !res.Valid {
			issues = append(issues, Issue{Kind: KindAudio, Message: "Audio: " + res.Reason})
		}
	}
	return issues
}

func (v *Validator) checkImages(files []string, dir string) []Issue {
	if !isDir(dir) {
		return []Issue{{Kind: KindImage, Message: "Image folder not found: " + dir}}
	}
	var issues []Issue
	for _, name := range files {
		if res := v.verifier.VerifyImage(filepath.Join(dir, name)); !res.Valid {
			issues = append(issues, Issue{Kind: KindImage, Message: "Image: " + res.Reason})
		}
	}
	return issues
}

func (v *Validator) checkMusic(logger *slog.Logger) []Issue {
	problem := v.music.Problem()
	if problem == "" {
		return nil
	}
	if !v.music.Required {
		logging.WarnWithContext(logger, "background music unavailable", "music_missing",
			logging.String("music_dir", v.music.Dir),
			logging.String("reason", problem),
			logging.String(logging.FieldImpact, "video will be assembled without background music"),
			logging.String(logging.FieldErrorHint, "add tracks to paths.music_dir"),
		)
		return nil
	}
	return []Issue{{Kind: KindMusic, Message: problem}}
}

// Problem describes why the music folder is unusable, or returns "".
func (m Music) Problem() string {
	dir := strings.TrimSpace(m.Dir)
	if dir == "" || !isDir(dir) {
		return "Music folder not found: " + dir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Sprintf("Music folder unreadable: %s: %v", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, allowed := range m.Extensions {
			if ext == allowed {
				return ""
			}
		}
	}
	return fmt.Sprintf("No music files in folder: %s (expected %s)", dir, strings.Join(m.Extensions, ", "))
}

func (v *Validator) logResult(logger *slog.Logger, report Report) {
	if report.OK() {
		logger.Info("all assets validated", logging.String(logging.FieldEventType, "gate_passed"))
		return
	}
	logger.Error("asset validation failed",
		logging.String(logging.FieldEventType, "gate_failed"),
		logging.Int("issue_count", len(report.Issues)),
		logging.Any("issues", report.Messages()),
	)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
