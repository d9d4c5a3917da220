package validation_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"oktabot/internal/assets"
	"oktabot/internal/logging"
	"oktabot/internal/plan"
	"oktabot/internal/testsupport"
	"oktabot/internal/validation"
)

type fakeProber struct{ seconds float64 }

func (f fakeProber) Duration(context.Context, string) (float64, error) { return f.seconds, nil }

type fixture struct {
	dir      string
	planPath string
	audioDir string
	imageDir string
	musicDir string
}

func newFixture(t *testing.T, segments int) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		planPath: filepath.Join(dir, "project.json"),
		audioDir: filepath.Join(dir, "audio"),
		imageDir: filepath.Join(dir, "images"),
		musicDir: filepath.Join(dir, "music"),
	}
	ids := testsupport.SegmentIDs(segments)
	testsupport.WritePlan(t, f.planPath, ids...)
	for _, id := range ids {
		testsupport.WriteFile(t, filepath.Join(f.audioDir, plan.AudioFile(id)), 4096)
		testsupport.WritePNG(t, filepath.Join(f.imageDir, plan.ImageFile(id)), 160, 120)
	}
	testsupport.WriteFile(t, filepath.Join(f.musicDir, "theme.mp3"), 2048)
	return f
}

func newValidator(f fixture, required bool) *validation.Validator {
	verifier := assets.NewVerifier(assets.Thresholds{
		MinImageBytes:    1024,
		MinImageWidth:    100,
		MinImageHeight:   100,
		MinAudioBytes:    1024,
		MinAudioDuration: 0.1,
	}, assets.WithProber(fakeProber{seconds: 2.5}))
	music := validation.Music{Dir: f.musicDir, Extensions: []string{".mp3", ".wav"}, Required: required}
	return validation.New(verifier, music, logging.NewNop())
}

func TestValidateAllPassesForCompleteProject(t *testing.T) {
	f := newFixture(t, 3)
	report := newValidator(f, true).ValidateAll(context.Background(), f.planPath, f.audioDir, f.imageDir)
	if !report.OK() {
		t.Fatalf("expected pass, got %v", report.Messages())
	}
}

func TestValidateAllReportsExactlyOneMissingAudio(t *testing.T) {
	f := newFixture(t, 3)
	missing := filepath.Join(f.audioDir, plan.AudioFile(testsupport.SegmentIDs(3)[1]))
	if err := os.Remove(missing); err != nil {
		t.Fatalf("remove: %v", err)
	}

	report := newValidator(f, true).ValidateAll(context.Background(), f.planPath, f.audioDir, f.imageDir)
	if report.OK() {
		t.Fatal("expected failure")
	}
	if len(report.Issues) != 1 {
		t.Fatalf("expected one issue, got %v", report.Messages())
	}
	issue := report.Issues[0]
	if issue.Kind != validation.KindAudio || !strings.Contains(issue.Message, "not found") {
		t.Fatalf("unexpected issue %+v", issue)
	}
}

func TestValidateAllShortCircuitsOnPlan(t *testing.T) {
	f := newFixture(t, 3)
	if err := os.WriteFile(f.planPath, []byte(`{"story_structure": {}}`), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	// Removing assets must not add issues once the plan check fails.
	if err := os.RemoveAll(f.audioDir); err != nil {
		t.Fatalf("remove audio: %v", err)
	}

	report := newValidator(f, true).ValidateAll(context.Background(), f.planPath, f.audioDir, f.imageDir)
	if report.OK() {
		t.Fatal("expected failure")
	}
	if report.Count(validation.KindPlan) != len(report.Issues) {
		t.Fatalf("expected only plan issues, got %v", report.Messages())
	}
	if report.Count(validation.KindPlan) < 3 {
		t.Fatalf("expected one issue per missing key, got %v", report.Messages())
	}
}

func TestValidateAllMissingPlanFile(t *testing.T) {
	f := newFixture(t, 1)
	missing := filepath.Join(f.dir, "nope.json")
	report := newValidator(f, true).ValidateAll(context.Background(), missing, f.audioDir, f.imageDir)
	if len(report.Issues) != 1 || report.Issues[0].Message != "Project file not found: "+missing {
		t.Fatalf("unexpected report %v", report.Messages())
	}
}

func TestValidateAllAccumulatesAcrossKinds(t *testing.T) {
	f := newFixture(t, 3)
	ids := testsupport.SegmentIDs(3)
	if err := os.Remove(filepath.Join(f.audioDir, plan.AudioFile(ids[0]))); err != nil {
		t.Fatalf("remove audio: %v", err)
	}
	testsupport.WritePNG(t, filepath.Join(f.imageDir, plan.ImageFile(ids[2])), 40, 40)
	if err := os.RemoveAll(f.musicDir); err != nil {
		t.Fatalf("remove music: %v", err)
	}

	report := newValidator(f, true).ValidateAll(context.Background(), f.planPath, f.audioDir, f.imageDir)
	if report.Count(validation.KindAudio) != 1 || report.Count(validation.KindImage) != 1 || report.Count(validation.KindMusic) != 1 {
		t.Fatalf("unexpected issues %v", report.Messages())
	}
	hints := validation.SuggestRecovery(report.Issues)
	if len(hints) != 3 {
		t.Fatalf("expected three hints, got %v", hints)
	}
}

func TestValidateAllMissingFolders(t *testing.T) {
	f := newFixture(t, 3)
	if err := os.RemoveAll(f.imageDir); err != nil {
		t.Fatalf("remove images: %v", err)
	}
	report := newValidator(f, true).ValidateAll(context.Background(), f.planPath, f.audioDir, f.imageDir)
	if len(report.Issues) != 1 || report.Issues[0].Message != "Image folder not found: "+f.imageDir {
		t.Fatalf("unexpected report %v", report.Messages())
	}
}

func TestMusicIgnoresUnknownExtensions(t *testing.T) {
	f := newFixture(t, 1)
	if err := os.Remove(filepath.Join(f.musicDir, "theme.mp3")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(f.musicDir, "notes.txt"), 10)

	report := newValidator(f, true).ValidateAll(context.Background(), f.planPath, f.audioDir, f.imageDir)
	if report.Count(validation.KindMusic) != 1 {
		t.Fatalf("expected music issue, got %v", report.Messages())
	}
}

func TestOptionalMusicDegradesToWarning(t *testing.T) {
	f := newFixture(t, 3)
	if err := os.RemoveAll(f.musicDir); err != nil {
		t.Fatalf("remove music: %v", err)
	}
	report := newValidator(f, false).ValidateAll(context.Background(), f.planPath, f.audioDir, f.imageDir)
	if !report.OK() {
		t.Fatalf("expected pass with optional music, got %v", report.Messages())
	}
}

func TestSuggestRecoveryOneHintPerKind(t *testing.T) {
	issues := []validation.Issue{
		{Kind: validation.KindAudio, Message: "Audio: audio file not found: a.wav"},
		{Kind: validation.KindAudio, Message: "Audio: audio file not found: b.wav"},
		{Kind: validation.KindPlan, Message: "Missing story section: intro"},
	}
	hints := validation.SuggestRecovery(issues)
	if len(hints) != 2 {
		t.Fatalf("expected two hints, got %v", hints)
	}
	if !strings.Contains(hints[0], "narration") || !strings.Contains(hints[1], "plan") {
		t.Fatalf("unexpected hints %v", hints)
	}
	if got := validation.SuggestRecovery(nil); len(got) != 0 {
		t.Fatalf("expected no hints, got %v", got)
	}
}
