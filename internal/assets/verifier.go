package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"time"

	"oktabot/internal/config"
	"oktabot/internal/fileutil"
	"oktabot/internal/media/ffprobe"
)

// Result is the pass/fail verdict for one file.
type Result struct {
	Valid  bool
	Reason string
}

// DurationProber measures audio length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Thresholds bounds what counts as a usable asset. Zero values disable the
// corresponding check.
type Thresholds struct {
	MinImageBytes    int64
	MinImageWidth    int
	MinImageHeight   int
	MinAudioBytes    int64
	MinAudioDuration float64
	MaxAge           time.Duration
}

// ThresholdsFromConfig converts the [assets] section.
func ThresholdsFromConfig(cfg config.Assets) Thresholds {
	return Thresholds{
		MinImageBytes:    int64(cfg.MinImageSizeKB) * 1024,
		MinImageWidth:    cfg.MinImageWidth,
		MinImageHeight:   cfg.MinImageHeight,
		MinAudioBytes:    int64(cfg.MinAudioSizeKB) * 1024,
		MinAudioDuration: cfg.MinAudioDurationSeconds,
		MaxAge:           time.Duration(cfg.MaxFileAgeDays) * 24 * time.Hour,
	}
}

// Verifier validates images and narration audio.
type Verifier struct {
	thresholds Thresholds
	prober     DurationProber
	now        func() time.Time
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithProber replaces the ffprobe-backed duration lookup.
func WithProber(p DurationProber) Option {
	return func(v *Verifier) {
		if p != nil {
			v.prober = p
		}
	}
}

// WithClock overrides the time source used for age checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier builds a verifier with the given thresholds.
func NewVerifier(thresholds Thresholds, opts ...Option) *Verifier {
	v := &Verifier{
		thresholds: thresholds,
		prober:     ffprobe.Prober{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyImage checks existence, size, decodability, resolution, and age.
func (v *Verifier) VerifyImage(path string) Result {
	info, res, ok := v.stat("image", path, v.thresholds.MinImageBytes)
	if !ok {
		return res
	}

	f, err := os.Open(path)
	if err != nil {
		return invalid("image unreadable: %s: %v", path, err)
	}
	cfg, format, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return invalid("cannot decode image: %s: %v", path, err)
	}
	if cfg.Width < v.thresholds.MinImageWidth || cfg.Height < v.thresholds.MinImageHeight {
		return invalid("image resolution too low: %dx%d (min %dx%d)", cfg.Width, cfg.Height, v.thresholds.MinImageWidth, v.thresholds.MinImageHeight)
	}
	if res, stale := v.checkAge("image", info); stale {
		return res
	}
	return Result{Valid: true, Reason: fmt.Sprintf("valid %s image %dx%d", format, cfg.Width, cfg.Height)}
}

// VerifyAudio checks existence, size, decodable duration, and age.
func (v *Verifier) VerifyAudio(ctx context.Context, path string) Result {
	info, res, ok := v.stat("audio", path, v.thresholds.MinAudioBytes)
	if !ok {
		return res
	}

	seconds, err := v.prober.Duration(ctx, path)
	if err != nil {
		return invalid("cannot decode audio: %s: %v", path, err)
	}
	if seconds < v.thresholds.MinAudioDuration {
		return invalid("audio too short: %.2fs < %.2fs", seconds, v.thresholds.MinAudioDuration)
	}
	if res, stale := v.checkAge("audio", info); stale {
		return res
	}
	return Result{Valid: true, Reason: fmt.Sprintf("valid audio (%.2fs)", seconds)}
}

// Hash returns the streaming SHA-256 digest of path, or "" when it is missing.
func (v *Verifier) Hash(path string) (string, error) {
	return fileutil.HashFile(path)
}

func (v *Verifier) stat(kind, path string, minBytes int64) (fs.FileInfo, Result, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, invalid("%s file not found: %s", kind, path), false
		}
		return nil, invalid("%s file unreadable: %s: %v", kind, path, err), false
	}
	if info.IsDir() {
		return nil, invalid("%s path is a directory: %s", kind, path), false
	}
	if info.Size() == 0 || info.Size() < minBytes {
		return nil, invalid("%s too small: %s (%d bytes, min %d)", kind, path, info.Size(), minBytes), false
	}
	return info, Result{}, true
}

func (v *Verifier) checkAge(kind string, info fs.FileInfo) (Result, bool) {
	if v.thresholds.MaxAge <= 0 {
		return Result{}, false
	}
	age := v.now().Sub(info.ModTime())
	if age > v.thresholds.MaxAge {
		return invalid("%s file too old: %.1f days", kind, age.Hours()/24), true
	}
	return Result{}, false
}

func invalid(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}
