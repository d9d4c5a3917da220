package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"oktabot/internal/logging"
	"oktabot/internal/plan"
	"oktabot/internal/ratelimit"
)

// Synthesizer renders narration text to a WAV file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, output string) error
}

// NarrateRequest describes one narration pass.
type NarrateRequest struct {
	PlanPath  string
	OutputDir string
	Voice     string
}

// Narrate produces one clip per plan segment, skipping clips that already
// verify. Segments are processed in narrative order; the first failure that
// survives retries stops the pass.
func (e *Env) Narrate(ctx context.Context, synth Synthesizer, verifier Verifier, req NarrateRequest) (Summary, error) {
	p, err := plan.Load(req.PlanPath)
	if err != nil {
		return Summary{}, err
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create audio dir: %w", err)
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.Logger, "narration"))

	segments := p.Segments()
	summary := Summary{Total: len(segments)}
	for _, segment := range segments {
		id := strings.TrimSpace(segment.SegmentID)
		if id == "" {
			summary.Total--
			continue
		}
		dst := filepath.Join(req.OutputDir, plan.AudioFile(id))
		if res := verifier.VerifyAudio(ctx, dst); res.Valid {
			summary.Skipped++
			logger.Debug("narration present", logging.String("segment", id))
			continue
		}
		_, err := throttled(ctx, e, ratelimit.APINarration, func(ctx context.Context) (struct{}, error) {
			if err := synth.Synthesize(ctx, segment.Text, req.Voice, dst); err != nil {
				return struct{}{}, err
			}
			if res := verifier.VerifyAudio(ctx, dst); !res.Valid {
				return struct{}{}, fmt.Errorf("narration for %s failed verification: %s", id, res.Reason)
			}
			return struct{}{}, nil
		})
		if err != nil {
			return summary, fmt.Errorf("narrate %s: %w", id, err)
		}
		summary.Generated++
		logger.Info("narration generated", logging.String("segment", id), logging.Int("done", summary.Skipped+summary.Generated), logging.Int("total", summary.Total))
	}
	logger.Info("narration pass complete",
		logging.Int("total", summary.Total),
		logging.Int("skipped", summary.Skipped),
		logging.Int("generated", summary.Generated),
	)
	return summary, nil
}
