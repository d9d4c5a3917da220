package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the pipeline reads and writes.
type Paths struct {
	ChannelsDir string `toml:"channels_dir"`
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
	MusicDir    string `toml:"music_dir"`
}

// Channel describes one publishing channel. The map key in [channels] is the
// display name; Slug names the directory under paths.channels_dir.
type Channel struct {
	Slug              string `toml:"slug"`
	PromptInstruction string `toml:"prompt_instruction"`
	Voice             string `toml:"voice"`
}

// Stage is the external command the producer runs for one step. Command is a
// template split on whitespace; placeholders such as {plan} are substituted per
// argument so values containing spaces stay a single argument.
type Stage struct {
	Command        string `toml:"command"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout converts the configured wall-clock limit to a duration.
func (s Stage) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Stages lists the command for every external program the producer invokes.
type Stages struct {
	Scriptwriting Stage `toml:"scriptwriting"`
	Direction     Stage `toml:"direction"`
	Narration     Stage `toml:"narration"`
	Images        Stage `toml:"images"`
	Editing       Stage `toml:"editing"`
	Upload        Stage `toml:"upload"`
}

// RetryPolicy bounds retries for one error type. MaxRetries counts total attempts.
type RetryPolicy struct {
	MaxRetries         int     `toml:"max_retries"`
	BaseDelaySeconds   float64 `toml:"base_delay_seconds"`
	ExponentialBackoff bool    `toml:"exponential_backoff"`
}

// BaseDelay converts the configured delay to a duration.
func (p RetryPolicy) BaseDelay() time.Duration {
	return time.Duration(p.BaseDelaySeconds * float64(time.Second))
}

// Retry holds one policy per retryable error type. Config and code-bug failures
// are never retried and have no policy.
type Retry struct {
	Quota   RetryPolicy `toml:"quota"`
	Network RetryPolicy `toml:"network"`
	Disk    RetryPolicy `toml:"disk"`
	System  RetryPolicy `toml:"system"`
}

// Classifier overrides the keyword sets used to classify failure messages.
// Empty lists keep the built-in sets.
type Classifier struct {
	QuotaKeywords   []string `toml:"quota_keywords"`
	NetworkKeywords []string `toml:"network_keywords"`
	DiskKeywords    []string `toml:"disk_keywords"`
	SystemKeywords  []string `toml:"system_keywords"`
}

// RateLimit throttles one external API.
type RateLimit struct {
	RequestsPerMinute int     `toml:"requests_per_minute"`
	CooldownSeconds   float64 `toml:"cooldown_seconds"`
}

// Cooldown converts the configured gap to a duration.
func (r RateLimit) Cooldown() time.Duration {
	return time.Duration(r.CooldownSeconds * float64(time.Second))
}

// RateLimits holds per-API throttles used by the built-in stage programs.
type RateLimits struct {
	LLM       RateLimit `toml:"llm"`
	Images    RateLimit `toml:"images"`
	Narration RateLimit `toml:"narration"`
	Upload    RateLimit `toml:"upload"`
}

// Assets contains the structural thresholds generated media must meet.
type Assets struct {
	MinImageSizeKB          int     `toml:"min_image_size_kb"`
	MinImageWidth           int     `toml:"min_image_width"`
	MinImageHeight          int     `toml:"min_image_height"`
	MinAudioSizeKB          int     `toml:"min_audio_size_kb"`
	MinAudioDurationSeconds float64 `toml:"min_audio_duration_seconds"`
	MaxFileAgeDays          int     `toml:"max_file_age_days"`
}

// Music configures the background-music check run by the validation gate.
type Music struct {
	Required   bool     `toml:"required"`
	Extensions []string `toml:"extensions"`
}

// Integrity scopes which asset files are hashed after asset production.
type Integrity struct {
	Scope string `toml:"scope"`
}

const (
	// IntegrityScopeRequired hashes only the assets the plan requires.
	IntegrityScopeRequired = "required"
	// IntegrityScopeFolder hashes every audio and image file in the asset folders.
	IntegrityScopeFolder = "folder"
)

// LLM contains the OpenRouter-compatible chat completion settings used by the
// script and direction stages.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Images configures the Pollinations image client.
type Images struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Workers        int    `toml:"workers"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Narration configures the speech-synthesis command used by the narrate stage.
// Command placeholders: {text}, {voice}, {output}.
type Narration struct {
	Command        string `toml:"command"`
	DefaultVoice   string `toml:"default_voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Upload configures the YouTube Data API uploader.
type Upload struct {
	ClientID        string `toml:"client_id"`
	ClientSecret    string `toml:"client_secret"`
	RefreshToken    string `toml:"refresh_token"`
	DefaultPrivacy  string `toml:"default_privacy"`
	DefaultCategory string `toml:"default_category"`
	MinVideoSizeMB  int    `toml:"min_video_size_mb"`
	MaxVideoSizeMB  int    `toml:"max_video_size_mb"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Published      bool   `toml:"published"`
	GateFailures   bool   `toml:"gate_failures"`
	Errors         bool   `toml:"errors"`
}

// Metrics configures the Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Preflight configures the environment checks run before a pipeline.
type Preflight struct {
	MinFreeDiskMB int  `toml:"min_free_disk_mb"`
	CheckLLM      bool `toml:"check_llm"`
}

// Config encapsulates all configuration values for oktabot.
type Config struct {
	Paths         Paths              `toml:"paths"`
	Channels      map[string]Channel `toml:"channels"`
	Stages        Stages             `toml:"stages"`
	Retry         Retry              `toml:"retry"`
	Classifier    Classifier         `toml:"classifier"`
	RateLimits    RateLimits         `toml:"rate_limits"`
	Assets        Assets             `toml:"assets"`
	Music         Music              `toml:"music"`
	Integrity     Integrity          `toml:"integrity"`
	LLM           LLM                `toml:"llm"`
	Images        Images             `toml:"images"`
	Narration     Narration          `toml:"narration"`
	Upload        Upload             `toml:"upload"`
	Notifications Notifications      `toml:"notifications"`
	Metrics       Metrics            `toml:"metrics"`
	Logging       Logging            `toml:"logging"`
	Preflight     Preflight          `toml:"preflight"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. A missing file is not an error;
// defaults are used and exists reports false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("oktabot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a pipeline run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ChannelsDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ChannelNames returns the configured channel names in sorted order.
func (c *Config) ChannelNames() []string {
	names := make([]string, 0, len(c.Channels))
	for name := range c.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Channel returns the named channel.
func (c *Config) Channel(name string) (Channel, bool) {
	ch, ok := c.Channels[name]
	return ch, ok
}

// ChannelDir returns the directory holding every project of a channel.
func (c *Config) ChannelDir(slug string) string {
	return filepath.Join(c.Paths.ChannelsDir, slug)
}

// LockPath is the file guarding against concurrent pipeline runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "oktabot.lock")
}

// LedgerPath is the SQLite database recording run history.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "oktabot.db")
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
