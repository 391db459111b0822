package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/patchwatch/patchwatch/internal/ports"
)

// WebhookNotifier implements ports.Notifier by posting to a chat webhook.
// Delivery failures are logged and never escalated.
type WebhookNotifier struct {
	client ports.HTTPClient
	url    string
	color  int
	logger ports.Logger
}

// NewWebhookNotifier creates a notifier. An empty url disables delivery;
// color is the target's display color as "#RRGGBB" (empty for the default).
func NewWebhookNotifier(client ports.HTTPClient, url, color string, logger ports.Logger) *WebhookNotifier {
	n := &WebhookNotifier{
		client: client,
		url:    url,
		logger: logger,
	}
	if c, ok := parseColor(color); ok {
		n.color = c
	} else if color != "" {
		logger.Warn("invalid display color, ignoring", ports.String("color", color))
	}
	return n
}

type webhookEmbed struct {
	Description string `json:"description"`
	Color       int    `json:"color,omitempty"`
}

type webhookPayload struct {
	Content string         `json:"content"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

// Notify delivers a completion message. Fire and forget.
func (n *WebhookNotifier) Notify(ctx context.Context, message string) {
	if n.url == "" {
		return
	}

	payload := webhookPayload{Content: message}
	if n.color != 0 {
		payload.Embeds = []webhookEmbed{{Description: message, Color: n.color}}
		payload.Content = ""
	}

	body, err := jsonBody(payload)
	if err != nil {
		n.logger.Error("notification payload", ports.Err(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, body)
	if err != nil {
		n.logger.Error("notification request", ports.Err(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	if err := doJSON(n.client, req, nil); err != nil {
		n.logger.Error("notification delivery failed", ports.Err(err))
		return
	}
	n.logger.Info("notification sent")
}

// parseColor converts "#RRGGBB" (or "RRGGBB") to an embed color int.
func parseColor(s string) (int, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
