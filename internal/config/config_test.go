package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"oktabot/internal/config"
)

func TestLoadDefaultsExpandPathsAndReadEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("YOUTUBE_CLIENT_ID", "client")
	t.Setenv("NTFY_TOPIC", "https://ntfy.example/topic")
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, "oktabot", "channels"); cfg.Paths.ChannelsDir != want {
		t.Fatalf("unexpected channels dir: got %q want %q", cfg.Paths.ChannelsDir, want)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Upload.ClientID != "client" {
		t.Fatalf("expected YouTube client id from env, got %q", cfg.Upload.ClientID)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/topic" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Integrity.Scope != config.IntegrityScopeRequired {
		t.Fatalf("expected required integrity scope, got %q", cfg.Integrity.Scope)
	}
	if !cfg.Music.Required {
		t.Fatal("expected music to be required by default")
	}
	if cfg.LockPath() != filepath.Join(cfg.Paths.StateDir, "oktabot.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "oktabot.toml")
	content := `
[paths]
channels_dir = "` + filepath.Join(dir, "channels") + `"

[channels."Kıyamet Günü"]
prompt_instruction = "  dramatic tone  "

[channels.Science]
slug = "sci"

[retry.network]
max_retries = 7

[music]
extensions = ["MP3", "ogg", ".mp3"]

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to resolve, got %q exists=%v", resolved, exists)
	}

	ch, ok := cfg.Channel("Kıyamet Günü")
	if !ok {
		t.Fatal("expected channel to be loaded")
	}
	if ch.Slug != "kiyamet-gunu" {
		t.Fatalf("expected derived slug, got %q", ch.Slug)
	}
	if ch.PromptInstruction != "dramatic tone" {
		t.Fatalf("expected trimmed instruction, got %q", ch.PromptInstruction)
	}
	if got := cfg.ChannelNames(); len(got) != 2 || got[0] != "Kıyamet Günü" || got[1] != "Science" {
		t.Fatalf("unexpected channel names %v", got)
	}

	if cfg.Retry.Network.MaxRetries != 7 {
		t.Fatalf("expected overridden retries, got %d", cfg.Retry.Network.MaxRetries)
	}
	if !cfg.Retry.Network.ExponentialBackoff || cfg.Retry.Network.BaseDelaySeconds != 10 {
		t.Fatalf("expected untouched network fields to keep defaults, got %+v", cfg.Retry.Network)
	}
	if got := strings.Join(cfg.Music.Extensions, ","); got != ".mp3,.ogg" {
		t.Fatalf("unexpected normalized extensions %q", got)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
	if cfg.Stages.Editing.Command == "" || cfg.Stages.Editing.Timeout().Seconds() != 3600 {
		t.Fatalf("expected default editing stage, got %+v", cfg.Stages.Editing)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"scope", func(c *config.Config) { c.Integrity.Scope = "everything" }, "integrity.scope"},
		{"privacy", func(c *config.Config) { c.Upload.DefaultPrivacy = "secret" }, "upload.default_privacy"},
		{"retries", func(c *config.Config) { c.Retry.Disk.MaxRetries = 0 }, "retry.disk.max_retries"},
		{"timeout", func(c *config.Config) { c.Stages.Upload.TimeoutSeconds = 0 }, "stages.upload.timeout_seconds"},
		{"rate", func(c *config.Config) { c.RateLimits.Images.CooldownSeconds = -1 }, "rate_limits.images"},
		{"slug", func(c *config.Config) {
			c.Channels = map[string]config.Channel{"a": {Slug: "x"}, "b": {Slug: "x"}}
		}, "duplicates"},
		{"age", func(c *config.Config) { c.Assets.MaxFileAgeDays = -1 }, "max_file_age_days"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	ch, ok := cfg.Channel("Science Shorts")
	if !ok || ch.Slug != "science-shorts" {
		t.Fatalf("expected sample channel, got %+v ok=%v", ch, ok)
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/music")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "music") {
		t.Fatalf("unexpected expansion %q", got)
	}
}
