package stages

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"oktabot/internal/logging"
	"oktabot/internal/plan"
	"oktabot/internal/ratelimit"
	"oktabot/internal/services/pollinations"
)

// ImageGenerator fetches one image to dst.
type ImageGenerator interface {
	Generate(ctx context.Context, req pollinations.Request, dst string) error
}

// ImagesRequest describes one image pass.
type ImagesRequest struct {
	PlanPath  string
	OutputDir string
}

type imageJob struct {
	id      string
	request pollinations.Request
	dst     string
}

// Images produces one image per plan segment with [images].workers
// concurrent workers sharing the images limiter. Images that already verify
// are skipped. Every missing image is attempted; failures are joined.
func (e *Env) Images(ctx context.Context, gen ImageGenerator, verifier Verifier, req ImagesRequest) (Summary, error) {
	p, err := plan.Load(req.PlanPath)
	if err != nil {
		return Summary{}, err
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create image dir: %w", err)
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.Logger, "images"))

	var summary Summary
	var jobs []imageJob
	for _, segment := range p.Segments() {
		id := strings.TrimSpace(segment.SegmentID)
		if id == "" {
			continue
		}
		summary.Total++
		dst := filepath.Join(req.OutputDir, plan.ImageFile(id))
		if res := verifier.VerifyImage(dst); res.Valid {
			summary.Skipped++
			continue
		}
		ratio, ok := segment.NormalizedAspectRatio()
		if !ok {
			logging.WarnWithContext(logger, "unsupported aspect ratio", "aspect_ratio_fallback",
				logging.String("segment", id),
				logging.String("aspect_ratio", segment.AspectRatio),
				logging.String("fallback", ratio),
			)
		}
		jobs = append(jobs, imageJob{
			id:      id,
			request: pollinations.Request{Prompt: segment.VisualPrompt, AspectRatio: ratio, Seed: seedFor(id)},
			dst:     dst,
		})
	}
	logger.Info("image pass planned", logging.Int("total", summary.Total), logging.Int("skipped", summary.Skipped), logging.Int("to_generate", len(jobs)))

	workers := e.Config.Images.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan imageJob)
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				err := e.generateImage(ctx, gen, verifier, job)
				mu.Lock()
				if err != nil {
					errs = append(errs, fmt.Errorf("image %s: %w", job.id, err))
				} else {
					summary.Generated++
					logger.Info("image generated", logging.String("segment", job.id))
				}
				mu.Unlock()
			}
		}()
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		queue <- job
	}
	close(queue)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return summary, errors.Join(errs...)
	}
	logger.Info("image pass complete", logging.Int("generated", summary.Generated))
	return summary, nil
}

func (e *Env) generateImage(ctx context.Context, gen ImageGenerator, verifier Verifier, job imageJob) error {
	_, err := throttled(ctx, e, ratelimit.APIImages, func(ctx context.Context) (struct{}, error) {
		if err := gen.Generate(ctx, job.request, job.dst); err != nil {
			return struct{}{}, err
		}
		if res := verifier.VerifyImage(job.dst); !res.Valid {
			return struct{}{}, fmt.Errorf("generated image failed verification: %s", res.Reason)
		}
		return struct{}{}, nil
	})
	return err
}

// seedFor derives a stable seed so regenerating a segment asks for the same
// picture.
func seedFor(segmentID string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(segmentID))
	return int64(h.Sum32())
}
