package project_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"oktabot/internal/fileutil"
	"oktabot/internal/logging"
	"oktabot/internal/project"
	"oktabot/internal/testsupport"
)

func TestStepStatusIsOrderedAndIdempotent(t *testing.T) {
	var status project.StepStatus
	if !status.Empty() || status.Last() != "" {
		t.Fatal("expected empty status")
	}
	if !status.MarkDone(project.StepScriptwriting) {
		t.Fatal("expected first mark to change the set")
	}
	status.MarkDone(project.StepDirection)
	if status.MarkDone(project.StepScriptwriting) {
		t.Fatal("expected repeated mark to be a no-op")
	}
	want := []string{project.StepScriptwriting, project.StepDirection}
	if got := status.Steps(); !slices.Equal(got, want) {
		t.Fatalf("steps = %v, want %v", got, want)
	}
	if status.Last() != project.StepDirection {
		t.Fatalf("last = %q", status.Last())
	}
	if !status.IsDone(project.StepDirection) || status.IsDone(project.StepUpload) {
		t.Fatal("IsDone mismatch")
	}
}

func TestStatusPersistsInDocumentedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), project.StatusFile)
	status := &project.StepStatus{}
	status.MarkDone(project.StepScriptwriting)
	status.MarkDone(project.StepDirection)
	if err := project.SaveStatus(path, status); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "{\n  \"completed_steps\": [\n    \"scriptwriting\",\n    \"direction\"\n  ]\n}\n"
	if string(data) != want {
		t.Fatalf("unexpected document:\n%s", data)
	}
	loaded := project.LoadStatus(logging.NewNop(), path)
	if !slices.Equal(loaded.Steps(), status.Steps()) {
		t.Fatalf("round trip mismatch: %v", loaded.Steps())
	}
}

func TestLoadStatusDefaultsToEmpty(t *testing.T) {
	dir := t.TempDir()
	if got := project.LoadStatus(logging.NewNop(), filepath.Join(dir, "missing.json")); !got.Empty() {
		t.Fatal("expected empty status for missing file")
	}
	corrupt := filepath.Join(dir, "status.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := project.LoadStatus(logging.NewNop(), corrupt); !got.Empty() {
		t.Fatal("expected empty status for corrupt file")
	}
}

func TestEmptyStatusSavesEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), project.StatusFile)
	if err := project.SaveStatus(path, &project.StepStatus{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{\n  \"completed_steps\": []\n}\n" {
		t.Fatalf("unexpected document %q", data)
	}
}

func TestIntegrityVerifyDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	p := &project.Project{Dir: dir}
	script := p.ScriptPath()
	plan := p.PlanPath()
	if err := os.WriteFile(script, []byte("script"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(plan, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	record := project.NewIntegrityRecord()
	for _, path := range []string{script, plan} {
		hash, err := fileutil.HashFile(path)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		record.Record(p.Rel(path), hash)
	}
	if got := record.Verify(p.Abs, fileutil.HashFile); len(got) != 0 {
		t.Fatalf("expected no mismatches, got %+v", got)
	}

	if err := os.WriteFile(script, []byte("edited"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Remove(plan); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got := record.Verify(p.Abs, fileutil.HashFile)
	want := []project.Mismatch{
		{Path: project.PlanFile, Reason: "missing"},
		{Path: project.ScriptFile, Reason: "modified"},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("mismatches = %+v, want %+v", got, want)
	}
}

func TestIntegrityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), project.IntegrityFile)
	record := project.NewIntegrityRecord()
	record.Record("audio/I-P1-S1.wav", "abc")
	record.Record("script.txt", "def")
	if err := project.SaveIntegrity(path, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded := project.LoadIntegrity(logging.NewNop(), path)
	if loaded.Len() != 2 {
		t.Fatalf("expected two entries, got %d", loaded.Len())
	}
	if h, ok := loaded.Hash("audio/I-P1-S1.wav"); !ok || h != "abc" {
		t.Fatalf("unexpected hash %q %v", h, ok)
	}
	if got := project.LoadIntegrity(logging.NewNop(), filepath.Join(t.TempDir(), "x.json")); got.Len() != 0 {
		t.Fatal("expected empty record for missing file")
	}
}

func TestNewUsesSlugUnderChannel(t *testing.T) {
	p := project.New("/data/channels", "Science", "science", "  Why Is The Sky Blue?  ", 1200)
	if p.Dir != filepath.Join("/data/channels", "science", "why-is-the-sky-blue") {
		t.Fatalf("dir = %s", p.Dir)
	}
	if p.Topic != "Why Is The Sky Blue?" || p.TargetLength != 1200 {
		t.Fatalf("unexpected project %+v", p)
	}
	if p.Rel(filepath.Join(p.Dir, "audio", "a.wav")) != "audio/a.wav" {
		t.Fatalf("rel mismatch")
	}
	if p.Abs("audio/a.wav") != filepath.Join(p.Dir, "audio", "a.wav") {
		t.Fatalf("abs mismatch")
	}
}

func TestSlugTruncates(t *testing.T) {
	long := "the quick brown fox jumps over the lazy dog and keeps running far away"
	slug := project.Slug(long)
	if len(slug) > project.SlugMaxLength {
		t.Fatalf("slug too long: %d", len(slug))
	}
	if project.Slug("Çılgın Şöförler") != "cilgin-soforler" {
		t.Fatalf("unexpected slug %q", project.Slug("Çılgın Şöförler"))
	}
}

func TestOpenReadsMeta(t *testing.T) {
	root := t.TempDir()
	p := project.New(root, "Science", "science", "Black Holes", 900)
	if err := p.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := p.SaveMeta(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)); err != nil {
		t.Fatalf("save meta: %v", err)
	}
	opened, err := project.Open(logging.NewNop(), p.Dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.Channel != "Science" || opened.Topic != "Black Holes" || opened.TargetLength != 900 || opened.ChannelSlug != "science" {
		t.Fatalf("unexpected project %+v", opened)
	}

	bare := filepath.Join(root, "science", "bare-project")
	if err := os.MkdirAll(bare, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	opened, err = project.Open(logging.NewNop(), bare)
	if err != nil {
		t.Fatalf("open bare: %v", err)
	}
	if opened.Topic != "bare-project" || opened.ChannelSlug != "science" {
		t.Fatalf("unexpected bare project %+v", opened)
	}
	if _, err := project.Open(logging.NewNop(), filepath.Join(root, "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestResetRemovesArtifacts(t *testing.T) {
	p := project.New(t.TempDir(), "Science", "science", "Reset Me", 100)
	testsupport.WriteFile(t, p.ScriptPath(), 10)
	testsupport.WriteFile(t, filepath.Join(p.AudioDir(), "I-P1-S1.wav"), 10)
	if err := p.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty directory, got %d entries", len(entries))
	}
}

func TestScanIncomplete(t *testing.T) {
	root := t.TempDir()
	logger := logging.NewNop()
	write := func(name string, steps ...string) {
		p := project.New(root, "Science", "science", name, 100)
		if err := p.Ensure(); err != nil {
			t.Fatalf("ensure: %v", err)
		}
		status := &project.StepStatus{}
		for _, step := range steps {
			status.MarkDone(step)
		}
		if err := project.SaveStatus(p.StatusPath(), status); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	write("done", project.Steps...)
	write("halfway", project.StepScriptwriting, project.StepDirection)
	write("fresh")
	testsupport.WriteFile(t, filepath.Join(root, "science", "stray.txt"), 5)

	incomplete, err := project.ScanIncomplete(logger, root, "science")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(incomplete) != 1 || incomplete[0].Name != "halfway" || incomplete[0].LastStep != project.StepDirection {
		t.Fatalf("unexpected incomplete list %+v", incomplete)
	}

	all, err := project.List(logger, root, "science")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected three projects, got %d", len(all))
	}

	none, err := project.ScanIncomplete(logger, root, "unknown")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected nothing for unknown channel, got %v %v", none, err)
	}
}
