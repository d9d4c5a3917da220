package stages

import (
	"context"
	"log/slog"

	"oktabot/internal/assets"
	"oktabot/internal/config"
	"oktabot/internal/logging"
	"oktabot/internal/media/ffprobe"
	"oktabot/internal/ratelimit"
	"oktabot/internal/retry"
)

// Env carries what every stage program shares.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Retry  *retry.Handler
	Limits *ratelimit.Registry
	// Inspect probes a rendered video before upload.
	Inspect func(ctx context.Context, path string) (ffprobe.Result, error)
}

// NewEnv wires retry and rate limiting from configuration.
func NewEnv(cfg *config.Config, logger *slog.Logger, opts ...retry.Option) *Env {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Env{
		Config: cfg,
		Logger: logger,
		Retry:  retry.NewFromConfig(cfg, logger, opts...),
		Limits: ratelimit.FromConfig(cfg.RateLimits),
		Inspect: func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, cfg.FFprobeBinary(), path)
		},
	}
}

// Verifier is the asset check stages use to decide what to regenerate.
type Verifier interface {
	VerifyImage(path string) assets.Result
	VerifyAudio(ctx context.Context, path string) assets.Result
}

// Summary counts what a generation stage did.
type Summary struct {
	Total     int
	Skipped   int
	Generated int
}

// throttled waits on the named limiter, then runs op under the retry handler.
func throttled[T any](ctx context.Context, e *Env, api string, op func(context.Context) (T, error)) (T, error) {
	limiter := e.Limits.Get(api)
	return retry.Do(ctx, e.Retry, func(ctx context.Context) (T, error) {
		if err := limiter.Throttle(ctx); err != nil {
			var zero T
			return zero, err
		}
		return op(ctx)
	})
}
