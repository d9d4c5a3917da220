// Package pollinations fetches generated images from the Pollinations HTTP
// API and stores them as PNG files.
package pollinations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"oktabot/internal/config"
	"oktabot/internal/fileutil"
	"oktabot/internal/textutil"
)

const (
	defaultBaseURL  = "https://image.pollinations.ai/prompt"
	defaultModel    = "flux"
	defaultTimeout  = 180 * time.Second
	minResponseSize = 100
	userAgent       = "oktabot/0.1.0"
	errorSnippetLen = 120
)

// maxResponseSize caps how much of a response body is read.
var maxResponseSize int64 = 32 << 20

// Dimensions maps a supported aspect ratio to the requested pixel size.
var Dimensions = map[string][2]int{
	"1:1":  {1024, 1024},
	"4:3":  {1024, 768},
	"3:4":  {768, 1024},
	"16:9": {1920, 1080},
	"9:16": {1080, 1920},
}

// Config captures the image endpoint settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// FromConfig converts the [images] section.
func FromConfig(cfg config.Images) Config {
	return Config{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Client generates images.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a client. An optional httpClient overrides the default.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Request describes one image.
type Request struct {
	Prompt      string
	AspectRatio string
	Seed        int64
}

// URL builds the GET URL for req. Unknown aspect ratios use 16:9.
func (c *Client) URL(req Request) string {
	dims, ok := Dimensions[req.AspectRatio]
	if !ok {
		dims = Dimensions["16:9"]
	}
	query := url.Values{}
	query.Set("width", strconv.Itoa(dims[0]))
	query.Set("height", strconv.Itoa(dims[1]))
	query.Set("model", c.cfg.Model)
	query.Set("nologo", "true")
	query.Set("seed", strconv.FormatInt(req.Seed, 10))
	return c.cfg.BaseURL + "/" + url.PathEscape(strings.TrimSpace(req.Prompt)) + "?" + query.Encode()
}

// Generate downloads the image for req and writes it to dst as PNG.
func (c *Client) Generate(ctx context.Context, req Request, dst string) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return fmt.Errorf("pollinations: empty prompt for %s", dst)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(req), nil)
	if err != nil {
		return fmt.Errorf("pollinations: new request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("pollinations: connection error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return fmt.Errorf("pollinations: network read failed: %w", err)
	}
	if int64(len(data)) > maxResponseSize {
		return fmt.Errorf("pollinations: response exceeds %d bytes", maxResponseSize)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, data)
	}
	if len(data) < minResponseSize {
		return fmt.Errorf("pollinations: incomplete network response (%d bytes)", len(data))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("pollinations: undecodable image in network response: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("pollinations: encode png: %w", err)
	}
	return fileutil.WriteFile(dst, buf.Bytes())
}

func statusError(code int, body []byte) error {
	snippet := strings.Join(strings.Fields(string(body)), " ")
	snippet = textutil.Truncate(snippet, errorSnippetLen)
	prefix := "pollinations"
	if code == http.StatusRequestTimeout || code >= http.StatusInternalServerError {
		prefix = "pollinations: upstream network error"
	}
	msg := fmt.Sprintf("%s: http %d %s", prefix, code, http.StatusText(code))
	if snippet != "" {
		msg += ": " + snippet
	}
	return errors.New(msg)
}
