package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/patchwatch/patchwatch/internal/ports"
)

// Management API endpoints.
const (
	credentialsEndpoint = "/api/v1/credentials"
	updateEndpoint      = "/api/v1/update"
	consoleEndpoint     = "/api/v1/console"
	signalEndpoint      = "/api/v1/signal"
	reinstallEndpoint   = "/api/v1/reinstall"
)

// ControlClient implements ports.ControlClient against a target's
// management API.
type ControlClient struct {
	client  ports.HTTPClient
	baseURL string
	apiKey  string
}

// NewControlClient creates a control client for one target.
func NewControlClient(client ports.HTTPClient, baseURL, apiKey string) *ControlClient {
	return &ControlClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// IssueCredential obtains a short-lived token for privileged actions.
func (c *ControlClient) IssueCredential(ctx context.Context) (string, error) {
	req, err := c.request(ctx, http.MethodPost, credentialsEndpoint, nil)
	if err != nil {
		return "", err
	}

	var cred struct {
		Token string `json:"token"`
	}
	if err := doJSON(c.client, req, &cred); err != nil {
		return "", fmt.Errorf("issue credential: %w", err)
	}
	if cred.Token == "" {
		return "", fmt.Errorf("issue credential: empty token")
	}
	return cred.Token, nil
}

// BeginUpdate issues the begin-update command using the given token.
func (c *ControlClient) BeginUpdate(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+updateEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	if err := doJSON(c.client, req, nil); err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	return nil
}

// EventStreamInfo returns the websocket endpoint and token for the target's
// management console stream.
func (c *ControlClient) EventStreamInfo(ctx context.Context) (ports.StreamInfo, error) {
	req, err := c.request(ctx, http.MethodGet, consoleEndpoint, nil)
	if err != nil {
		return ports.StreamInfo{}, err
	}

	var info ports.StreamInfo
	var payload struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	}
	if err := doJSON(c.client, req, &payload); err != nil {
		return info, fmt.Errorf("stream info: %w", err)
	}
	if payload.URL == "" || payload.Token == "" {
		return info, fmt.Errorf("stream info: incomplete response")
	}
	info.URL = payload.URL
	info.Token = payload.Token
	return info, nil
}

// LifecycleSignal sends a process lifecycle signal to the target.
func (c *ControlClient) LifecycleSignal(ctx context.Context, kind ports.SignalKind) error {
	body, err := jsonBody(map[string]string{"kind": string(kind)})
	if err != nil {
		return err
	}
	req, err := c.request(ctx, http.MethodPost, signalEndpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := doJSON(c.client, req, nil); err != nil {
		return fmt.Errorf("signal %s: %w", kind, err)
	}
	return nil
}

// Reinstall tells the target to reinstall its server software.
func (c *ControlClient) Reinstall(ctx context.Context) error {
	req, err := c.request(ctx, http.MethodPost, reinstallEndpoint, nil)
	if err != nil {
		return err
	}
	if err := doJSON(c.client, req, nil); err != nil {
		return fmt.Errorf("reinstall: %w", err)
	}
	return nil
}

func (c *ControlClient) request(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}
