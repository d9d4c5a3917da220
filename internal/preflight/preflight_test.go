package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"oktabot/internal/config"
	"oktabot/internal/testsupport"
	"oktabot/internal/validation"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckDiskSpace("disk", dir, 1); !r.Passed {
		t.Fatalf("expected 1 MB to be available: %s", r.Detail)
	}
	if r := CheckDiskSpace("disk", dir, 1<<40); r.Passed {
		t.Fatalf("expected an exabyte requirement to fail: %s", r.Detail)
	}
	if r := CheckDiskSpace("disk", dir, 0); !r.Passed || !r.Optional {
		t.Fatalf("expected disabled check to pass, got %+v", r)
	}
}

func TestCheckMusic(t *testing.T) {
	dir := t.TempDir()
	music := validation.Music{Dir: dir, Extensions: []string{".mp3"}, Required: true}
	if r := CheckMusic(music); r.Passed || r.Optional {
		t.Fatalf("expected required empty music folder to fail, got %+v", r)
	}
	testsupport.WriteFile(t, filepath.Join(dir, "theme.mp3"), 32)
	if r := CheckMusic(music); !r.Passed {
		t.Fatalf("expected music check to pass: %s", r.Detail)
	}

	music.Dir = filepath.Join(dir, "missing")
	music.Required = false
	r := CheckMusic(music)
	if r.Passed || !r.Optional {
		t.Fatalf("expected optional failure, got %+v", r)
	}
	if len(Failed([]Result{r})) != 0 {
		t.Fatal("optional failures must not block")
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer srv.Close()

	if r := CheckLLM(context.Background(), "LLM", config.LLM{BaseURL: srv.URL}); r.Passed {
		t.Fatal("expected missing key to fail")
	}
	r := CheckLLM(context.Background(), "LLM", config.LLM{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	if !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReadyEnvironment(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMusicTrack(), testsupport.WithStubbedBinaries("ffprobe", "oktabot-editor", "espeak-ng"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	cfg.Preflight.MinFreeDiskMB = 1

	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
	for _, r := range results {
		if r.Name == "LLM API" {
			t.Fatal("LLM check must be opt-in")
		}
	}
}

func TestRunAll_ReportsMissingEditor(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMusicTrack(), testsupport.WithStubbedBinaries("ffprobe", "espeak-ng"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	cfg.Preflight.MinFreeDiskMB = 0
	cfg.Stages.Editing.Command = "definitely-missing-editor --plan {plan}"

	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 1 || failed[0].Name != "editing stage" {
		t.Fatalf("expected only the editor to fail, got %+v", failed)
	}
}
