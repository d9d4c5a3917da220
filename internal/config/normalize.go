package config

import (
	"fmt"
	"os"
	"strings"

	"oktabot/internal/textutil"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeChannels()
	c.normalizeStages()
	c.normalizeMusic()
	c.normalizeLLM()
	c.normalizeImages()
	c.normalizeNarration()
	c.normalizeUpload()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.Integrity.Scope = strings.ToLower(strings.TrimSpace(c.Integrity.Scope))
	if c.Integrity.Scope == "" {
		c.Integrity.Scope = IntegrityScopeRequired
	}
	c.Metrics.TextfilePath = strings.TrimSpace(c.Metrics.TextfilePath)
	if c.Metrics.TextfilePath != "" {
		expanded, err := expandPath(c.Metrics.TextfilePath)
		if err != nil {
			return fmt.Errorf("metrics.textfile_path: %w", err)
		}
		c.Metrics.TextfilePath = expanded
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ChannelsDir, err = expandPath(c.Paths.ChannelsDir); err != nil {
		return fmt.Errorf("paths.channels_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.MusicDir, err = expandPath(c.Paths.MusicDir); err != nil {
		return fmt.Errorf("paths.music_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeChannels() {
	if c.Channels == nil {
		c.Channels = map[string]Channel{}
		return
	}
	for name, ch := range c.Channels {
		ch.Slug = strings.TrimSpace(ch.Slug)
		if ch.Slug == "" {
			ch.Slug = textutil.Slugify(name, 50)
		}
		ch.PromptInstruction = strings.TrimSpace(ch.PromptInstruction)
		ch.Voice = strings.TrimSpace(ch.Voice)
		c.Channels[name] = ch
	}
}

func (c *Config) normalizeStages() {
	defaults := Default().Stages
	fill := func(stage *Stage, fallback Stage) {
		stage.Command = strings.TrimSpace(stage.Command)
		if stage.Command == "" {
			stage.Command = fallback.Command
		}
		if stage.TimeoutSeconds <= 0 {
			stage.TimeoutSeconds = fallback.TimeoutSeconds
		}
	}
	fill(&c.Stages.Scriptwriting, defaults.Scriptwriting)
	fill(&c.Stages.Direction, defaults.Direction)
	fill(&c.Stages.Narration, defaults.Narration)
	fill(&c.Stages.Images, defaults.Images)
	fill(&c.Stages.Editing, defaults.Editing)
	fill(&c.Stages.Upload, defaults.Upload)
}

func (c *Config) normalizeMusic() {
	exts := make([]string, 0, len(c.Music.Extensions))
	seen := make(map[string]struct{}, len(c.Music.Extensions))
	for _, ext := range c.Music.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultMusicExtensions...)
	}
	c.Music.Extensions = exts
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeImages() {
	c.Images.BaseURL = strings.TrimRight(strings.TrimSpace(c.Images.BaseURL), "/")
	if c.Images.BaseURL == "" {
		c.Images.BaseURL = defaultImagesBaseURL
	}
	c.Images.Model = strings.TrimSpace(c.Images.Model)
	if c.Images.Model == "" {
		c.Images.Model = defaultImagesModel
	}
	if c.Images.Workers <= 0 {
		c.Images.Workers = 1
	}
	if c.Images.TimeoutSeconds <= 0 {
		c.Images.TimeoutSeconds = defaultImagesTimeoutSeconds
	}
}

func (c *Config) normalizeNarration() {
	c.Narration.Command = strings.TrimSpace(c.Narration.Command)
	if c.Narration.Command == "" {
		c.Narration.Command = defaultNarrationCommand
	}
	c.Narration.DefaultVoice = strings.TrimSpace(c.Narration.DefaultVoice)
	if c.Narration.DefaultVoice == "" {
		c.Narration.DefaultVoice = defaultNarrationVoice
	}
	if c.Narration.TimeoutSeconds <= 0 {
		c.Narration.TimeoutSeconds = defaultNarrationTimeoutSeconds
	}
}

func (c *Config) normalizeUpload() {
	lookup := func(value *string, env string) {
		*value = strings.TrimSpace(*value)
		if *value != "" {
			return
		}
		if v, ok := os.LookupEnv(env); ok {
			*value = strings.TrimSpace(v)
		}
	}
	lookup(&c.Upload.ClientID, "YOUTUBE_CLIENT_ID")
	lookup(&c.Upload.ClientSecret, "YOUTUBE_CLIENT_SECRET")
	lookup(&c.Upload.RefreshToken, "YOUTUBE_REFRESH_TOKEN")

	c.Upload.DefaultPrivacy = strings.ToLower(strings.TrimSpace(c.Upload.DefaultPrivacy))
	if c.Upload.DefaultPrivacy == "" {
		c.Upload.DefaultPrivacy = defaultUploadPrivacy
	}
	c.Upload.DefaultCategory = strings.TrimSpace(c.Upload.DefaultCategory)
	if c.Upload.DefaultCategory == "" {
		c.Upload.DefaultCategory = defaultUploadCategory
	}
	if c.Upload.MinVideoSizeMB <= 0 {
		c.Upload.MinVideoSizeMB = defaultMinVideoSizeMB
	}
	if c.Upload.MaxVideoSizeMB <= 0 {
		c.Upload.MaxVideoSizeMB = defaultMaxVideoSizeMB
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}
