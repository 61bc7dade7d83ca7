package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spatialrip/internal/config"
)

const userAgent = "spatialrip/0.1.0"

// Service defines the push surface used by the processing commands.
type Service interface {
	NotifyDiscDetected(ctx context.Context, device string) error
	NotifyCompleted(ctx context.Context, title, output string) error
	NotifyFailed(ctx context.Context, title string, err error) error
	NotifyBatchCompleted(ctx context.Context, completed, skipped, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
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

func (n *ntfyService) NotifyDiscDetected(ctx context.Context, device string) error {
	return n.send(ctx, payload{
		title:   "spatialrip - Disc Detected",
		message: fmt.Sprintf("Disc inserted in %s; starting conversion", strings.TrimSpace(device)),
		tags:    []string{"spatialrip", "disc", "detected"},
	})
}

func (n *ntfyService) NotifyCompleted(ctx context.Context, title, output string) error {
	message := fmt.Sprintf("Ready to watch: %s", strings.TrimSpace(title))
	if output = strings.TrimSpace(output); output != "" {
		message += "\nFile: " + output
	}
	return n.send(ctx, payload{
		title:    "spatialrip - Complete",
		message:  message,
		tags:     []string{"spatialrip", "pipeline", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyFailed(ctx context.Context, title string, err error) error {
	var b strings.Builder
	b.WriteString("Conversion failed")
	if title = strings.TrimSpace(title); title != "" {
		b.WriteString(" for ")
		b.WriteString(title)
	}
	b.WriteString(": ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "spatialrip - Error",
		message:  b.String(),
		tags:     []string{"spatialrip", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, completed, skipped, failed int, duration time.Duration) error {
	duration = max(duration.Round(time.Second), 0)
	title := "spatialrip - Batch Complete"
	if failed > 0 {
		title = "spatialrip - Batch Complete (with errors)"
	}
	return n.send(ctx, payload{
		title: title,
		message: fmt.Sprintf("%d completed, %d skipped, %d failed in %s",
			completed, skipped, failed, duration),
		tags: []string{"spatialrip", "batch", "completed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "spatialrip - Test",
		message:  "Notification system test",
		tags:     []string{"spatialrip", "test"},
		priority: "low",
	})
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

func (noopService) NotifyDiscDetected(context.Context, string) error      { return nil }
func (noopService) NotifyCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyFailed(context.Context, string, error) error     { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }
