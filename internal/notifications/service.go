package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookforge/internal/config"
)

const userAgent = "bookforge/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyRunStarted(ctx context.Context, orderID, title string) error
	NotifyRunCompleted(ctx context.Context, orderID, title string, pages int, duration time.Duration) error
	NotifyRunFailed(ctx context.Context, orderID, stage string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, orderID, title string) error {
	data := payload{
		title:    "bookforge - Run Started",
		message:  fmt.Sprintf("Producing %s", describeOrder(orderID, title)),
		tags:     []string{"bookforge", "run", "started"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, orderID, title string, pages int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:   "bookforge - Book Ready",
		message: fmt.Sprintf("📖 %s: %d pages in %s", describeOrder(orderID, title), pages, duration),
		tags:    []string{"bookforge", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, orderID, stage string, err error) error {
	var builder strings.Builder
	builder.WriteString("❌ Order ")
	builder.WriteString(strings.TrimSpace(orderID))
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" failed during ")
		builder.WriteString(stage)
	} else {
		builder.WriteString(" failed")
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "bookforge - Run Failed",
		message:  builder.String(),
		tags:     []string{"bookforge", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "bookforge - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"bookforge", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func describeOrder(orderID, title string) string {
	orderID = strings.TrimSpace(orderID)
	title = strings.TrimSpace(title)
	if title == "" {
		return "order " + orderID
	}
	return fmt.Sprintf("%q (order %s)", title, orderID)
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, string) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, string, string, int, time.Duration) error {
	return nil
}
func (noopService) NotifyRunFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
