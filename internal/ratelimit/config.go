package ratelimit

import "oktabot/internal/config"

// API names understood by FromConfig.
const (
	APILLM       = "llm"
	APIImages    = "images"
	APINarration = "narration"
	APIUpload    = "upload"
)

// FromConfig builds a registry with one limiter per configured API.
func FromConfig(cfg config.RateLimits, opts ...Option) *Registry {
	limits := map[string]config.RateLimit{
		APILLM:       cfg.LLM,
		APIImages:    cfg.Images,
		APINarration: cfg.Narration,
		APIUpload:    cfg.Upload,
	}
	return NewRegistry(func(name string) *Limiter {
		limit, ok := limits[name]
		if !ok {
			return nil
		}
		return New(limit.RequestsPerMinute, limit.Cooldown(), opts...)
	})
}
