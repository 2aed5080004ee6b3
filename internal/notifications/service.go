package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"postgate/internal/config"
)

const userAgent = "postgate/0.1.0"

// Event identifies a queue occurrence worth telling a reviewer about.
type Event string

const (
	EventItemSubmitted Event = "item_submitted"
	EventItemsExpired  Event = "items_expired"
	EventError         Event = "error"
	EventTest          Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events. Implementations must be safe for concurrent use.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Enabled() bool
}

// NewService builds an ntfy-backed service, or a no-op one when the topic is
// empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		suppressed: map[Event]bool{
			EventItemSubmitted: !cfg.Notifications.OnSubmit,
			EventItemsExpired:  !cfg.Notifications.OnExpire,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	suppressed map[Event]bool
}

func (n *ntfyService) Enabled() bool { return n != nil && n.client != nil }

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n.suppressed[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventItemSubmitted:
		body := "New item awaiting review: " + excerpt(payload.text("content"), 120)
		if deadline := payload.text("expiresAt"); deadline != "" {
			body += "\nDecide before " + deadline
		}
		return message{
			title: "postgate - Review Needed",
			body:  body,
			tags:  []string{"postgate", "review", "pending"},
		}, true
	case EventItemsExpired:
		count := payload.text("count")
		noun, verb := "items", "were"
		if count == "1" {
			noun, verb = "item", "was"
		}
		return message{
			title: "postgate - Items Expired",
			body:  fmt.Sprintf("⌛ %s %s expired without a decision and %s rejected", count, noun, verb),
			tags:  []string{"postgate", "sweeper", "expired"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if label := payload.text("context"); label != "" {
			builder.WriteString(" during ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := payload.text("error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "postgate - Error",
			body:     builder.String(),
			tags:     []string{"postgate", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "postgate - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"postgate", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// excerpt collapses whitespace and cuts s to at most limit runes.
func excerpt(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Enabled() bool                                 { return false }
