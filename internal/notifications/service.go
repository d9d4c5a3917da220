package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"oktabot/internal/config"
)

const userAgent = "oktabot/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventPipelineCompleted Event = "pipeline_completed"
	EventVideoPublished    Event = "video_published"
	EventGateFailed        Event = "gate_failed"
	EventError             Event = "error"
	EventTest              Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service publishes pipeline events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventPipelineCompleted: cfg.Notifications.Completed,
			EventVideoPublished:    cfg.Notifications.Published,
			EventGateFailed:        cfg.Notifications.GateFailures,
			EventError:             cfg.Notifications.Errors,
			EventTest:              true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventPipelineCompleted:
		title := str(data, "topic")
		message := fmt.Sprintf("✅ Video produced: %s", title)
		if channel := str(data, "channel"); channel != "" {
			message = fmt.Sprintf("%s (%s)", message, channel)
		}
		if steps := str(data, "steps"); steps != "" {
			message += "\nSteps: " + steps
		}
		return payload{
			title:   "oktabot - Complete",
			message: message,
			tags:    []string{"oktabot", "pipeline", "completed"},
		}, true
	case EventVideoPublished:
		message := fmt.Sprintf("📺 Published: %s", str(data, "title"))
		if id := str(data, "videoID"); id != "" {
			message += "\nhttps://youtu.be/" + id
		}
		return payload{
			title:    "oktabot - Published",
			message:  message,
			tags:     []string{"oktabot", "youtube", "published"},
			priority: "high",
		}, true
	case EventGateFailed:
		var b strings.Builder
		fmt.Fprintf(&b, "🚫 Asset validation failed for %s", str(data, "project"))
		if issues, ok := data["issues"].([]string); ok {
			fmt.Fprintf(&b, " (%d issue(s))", len(issues))
			for i, issue := range issues {
				if i == 5 {
					fmt.Fprintf(&b, "\n… %d more", len(issues)-5)
					break
				}
				b.WriteString("\n- " + issue)
			}
		}
		return payload{
			title:    "oktabot - Validation Failed",
			message:  b.String(),
			tags:     []string{"oktabot", "validation", "failed"},
			priority: "high",
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := str(data, "context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if msg := str(data, "error"); msg != "" {
			b.WriteString(msg)
		} else {
			b.WriteString("unknown")
		}
		return payload{
			title:    "oktabot - Error",
			message:  b.String(),
			tags:     []string{"oktabot", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return payload{
			title:    "oktabot - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"oktabot", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func str(data Payload, key string) string {
	if data == nil {
		return ""
	}
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
