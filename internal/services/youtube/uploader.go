// Package youtube publishes rendered videos through the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"oktabot/internal/config"
	"oktabot/internal/logging"
	"oktabot/internal/services"
)

// Credentials are the OAuth client and long-lived refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// CredentialsFromConfig reads the [upload] section.
func CredentialsFromConfig(cfg config.Upload) Credentials {
	return Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RefreshToken: cfg.RefreshToken,
	}
}

// HTTPClient returns an OAuth2 client that refreshes access tokens from the
// refresh token.
func (c Credentials) HTTPClient(ctx context.Context) (*http.Client, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" || strings.TrimSpace(c.RefreshToken) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "auth",
			"upload.client_id, upload.client_secret, and upload.refresh_token are required", nil)
	}
	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{ytapi.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: c.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}

// Uploader inserts videos.
type Uploader struct {
	svc    *ytapi.Service
	logger *slog.Logger
}

// NewUploader builds an uploader. Production callers pass
// option.WithHTTPClient with the OAuth client; tests may add option.WithEndpoint.
func NewUploader(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Uploader, error) {
	svc, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Uploader{svc: svc, logger: logging.NewComponentLogger(logger, "youtube")}, nil
}

// Upload sends the video with its metadata and returns the new video id.
func (u *Uploader) Upload(ctx context.Context, videoPath string, meta Metadata) (string, error) {
	f, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	video := &ytapi.Video{
		Snippet: &ytapi.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &ytapi.VideoStatus{
			PrivacyStatus:           meta.PrivacyStatus,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	logger := logging.WithContext(ctx, u.logger)
	logger.Info("uploading video",
		logging.String("title", meta.Title),
		logging.String("privacy", meta.PrivacyStatus),
		logging.String("category", meta.CategoryName),
		logging.Int("tags", len(meta.Tags)),
	)

	call := u.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		ProgressUpdater(func(current, total int64) {
			if total > 0 {
				logger.Debug("upload progress", logging.Int64("sent_bytes", current), logging.Int64("total_bytes", total))
			}
		}).
		Context(ctx)
	uploaded, err := call.Do()
	if err != nil {
		return "", describeAPIError(err)
	}
	if uploaded == nil || strings.TrimSpace(uploaded.Id) == "" {
		return "", errors.New("youtube upload: completed without a video id")
	}
	logger.Info("video uploaded",
		logging.String("video_id", uploaded.Id),
		logging.String("url", "https://www.youtube.com/watch?v="+uploaded.Id),
	)
	return uploaded.Id, nil
}

// describeAPIError words API failures for the error classifier.
func describeAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("youtube upload: connection error: %w", err)
	}
	reason := ""
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests || strings.Contains(strings.ToLower(reason), "quota") || reason == "rateLimitExceeded":
		return fmt.Errorf("youtube upload: quota exceeded (%s): %w", reason, err)
	case apiErr.Code >= http.StatusInternalServerError:
		return fmt.Errorf("youtube upload: upstream network error: %w", err)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "upload", "auth", "youtube rejected the credentials", err)
	default:
		return fmt.Errorf("youtube upload: %w", err)
	}
}
