package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var validPrivacy = map[string]struct{}{"private": {}, "public": {}, "unlisted": {}}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validatePaths,
		c.validateChannels,
		c.validateStages,
		c.validateRetry,
		c.validateRateLimits,
		c.validateAssets,
		c.validateIntegrity,
		c.validateUpload,
		c.validatePreflight,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ChannelsDir) == "" {
		return errors.New("paths.channels_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Music.Required && strings.TrimSpace(c.Paths.MusicDir) == "" {
		return errors.New("paths.music_dir must be set when music.required is true")
	}
	return nil
}

func (c *Config) validateChannels() error {
	slugs := make(map[string]string, len(c.Channels))
	for _, name := range c.ChannelNames() {
		ch := c.Channels[name]
		if strings.TrimSpace(name) == "" {
			return errors.New("channels: channel name must not be empty")
		}
		if strings.ContainsAny(ch.Slug, `/\`) || ch.Slug == "." || ch.Slug == ".." {
			return fmt.Errorf("channels.%s.slug %q must be a single directory name", name, ch.Slug)
		}
		if other, ok := slugs[ch.Slug]; ok {
			return fmt.Errorf("channels.%s.slug %q duplicates channel %q", name, ch.Slug, other)
		}
		slugs[ch.Slug] = name
	}
	return nil
}

func (c *Config) validateStages() error {
	return ensurePositiveMap(map[string]int{
		"stages.scriptwriting.timeout_seconds": c.Stages.Scriptwriting.TimeoutSeconds,
		"stages.direction.timeout_seconds":     c.Stages.Direction.TimeoutSeconds,
		"stages.narration.timeout_seconds":     c.Stages.Narration.TimeoutSeconds,
		"stages.images.timeout_seconds":        c.Stages.Images.TimeoutSeconds,
		"stages.editing.timeout_seconds":       c.Stages.Editing.TimeoutSeconds,
		"stages.upload.timeout_seconds":        c.Stages.Upload.TimeoutSeconds,
	})
}

func (c *Config) validateRetry() error {
	policies := map[string]RetryPolicy{
		"quota":   c.Retry.Quota,
		"network": c.Retry.Network,
		"disk":    c.Retry.Disk,
		"system":  c.Retry.System,
	}
	for name, policy := range policies {
		if policy.MaxRetries < 1 {
			return fmt.Errorf("retry.%s.max_retries must be at least 1", name)
		}
		if policy.BaseDelaySeconds < 0 {
			return fmt.Errorf("retry.%s.base_delay_seconds must be >= 0", name)
		}
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	limits := map[string]RateLimit{
		"llm":       c.RateLimits.LLM,
		"images":    c.RateLimits.Images,
		"narration": c.RateLimits.Narration,
		"upload":    c.RateLimits.Upload,
	}
	for name, limit := range limits {
		if limit.RequestsPerMinute < 0 {
			return fmt.Errorf("rate_limits.%s.requests_per_minute must be >= 0", name)
		}
		if limit.CooldownSeconds < 0 {
			return fmt.Errorf("rate_limits.%s.cooldown_seconds must be >= 0", name)
		}
	}
	return nil
}

func (c *Config) validateAssets() error {
	a := c.Assets
	if a.MinImageSizeKB < 0 || a.MinAudioSizeKB < 0 {
		return errors.New("assets: minimum sizes must be >= 0")
	}
	if a.MinImageWidth < 0 || a.MinImageHeight < 0 {
		return errors.New("assets: minimum image dimensions must be >= 0")
	}
	if a.MinAudioDurationSeconds < 0 {
		return errors.New("assets.min_audio_duration_seconds must be >= 0")
	}
	if a.MaxFileAgeDays < 0 {
		return errors.New("assets.max_file_age_days must be >= 0 (0 disables the age check)")
	}
	return nil
}

func (c *Config) validateIntegrity() error {
	switch c.Integrity.Scope {
	case IntegrityScopeRequired, IntegrityScopeFolder:
		return nil
	default:
		return fmt.Errorf("integrity.scope %q must be %q or %q", c.Integrity.Scope, IntegrityScopeRequired, IntegrityScopeFolder)
	}
}

func (c *Config) validateUpload() error {
	if _, ok := validPrivacy[c.Upload.DefaultPrivacy]; !ok {
		allowed := make([]string, 0, len(validPrivacy))
		for k := range validPrivacy {
			allowed = append(allowed, k)
		}
		sort.Strings(allowed)
		return fmt.Errorf("upload.default_privacy %q must be one of %s", c.Upload.DefaultPrivacy, strings.Join(allowed, ", "))
	}
	if c.Upload.MaxVideoSizeMB < c.Upload.MinVideoSizeMB {
		return errors.New("upload.max_video_size_mb must be >= upload.min_video_size_mb")
	}
	return nil
}

func (c *Config) validatePreflight() error {
	if c.Preflight.MinFreeDiskMB < 0 {
		return errors.New("preflight.min_free_disk_mb must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
