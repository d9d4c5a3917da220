package stages

import (
	"context"
	"fmt"
	"math"
	"strings"

	"oktabot/internal/logging"
	"oktabot/internal/plan"
	"oktabot/internal/ratelimit"
	"oktabot/internal/services"
	"oktabot/internal/services/youtube"
)

// Publisher uploads a rendered video.
type Publisher interface {
	Upload(ctx context.Context, videoPath string, meta youtube.Metadata) (string, error)
}

// UploadRequest describes one publication.
type UploadRequest struct {
	VideoPath string
	PlanPath  string
}

// Upload validates the rendered video and the plan's metadata, publishes the
// video, and returns its id.
func (e *Env) Upload(ctx context.Context, pub Publisher, req UploadRequest) (string, error) {
	if _, err := youtube.CheckVideoFile(req.VideoPath, e.Config.Upload.MinVideoSizeMB, e.Config.Upload.MaxVideoSizeMB); err != nil {
		return "", err
	}
	if err := e.checkStreams(ctx, req.VideoPath); err != nil {
		return "", err
	}
	p, err := plan.Load(req.PlanPath)
	if err != nil {
		return "", err
	}
	meta, err := youtube.PrepareMetadata(p.YouTubeMetadata, youtube.Defaults{
		Category: e.Config.Upload.DefaultCategory,
		Privacy:  e.Config.Upload.DefaultPrivacy,
	})
	if err != nil {
		return "", err
	}

	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.Logger, "upload"))
	id, err := throttled(ctx, e, ratelimit.APIUpload, func(ctx context.Context) (string, error) {
		return pub.Upload(ctx, req.VideoPath, meta)
	})
	if err != nil {
		return "", err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("upload returned no video id")
	}
	logger.Info("video published", logging.String("video_id", id), logging.String("title", meta.Title))
	return id, nil
}

// checkStreams rejects renders that ffprobe cannot vouch for.
func (e *Env) checkStreams(ctx context.Context, path string) error {
	if e.Inspect == nil {
		return nil
	}
	probe, err := e.Inspect(ctx, path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "upload", "probe video", "rendered video is unreadable", err)
	}
	if probe.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "upload", "probe video", "rendered video has no video stream", nil)
	}
	if probe.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "upload", "probe video", "rendered video has no narration track", nil)
	}
	if d := probe.DurationSeconds(); math.IsNaN(d) || d <= 0 {
		return services.Wrap(services.ErrValidation, "upload", "probe video", "rendered video reports no duration", nil)
	}
	return nil
}
