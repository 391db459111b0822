package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patchwatch/patchwatch/internal/domain"
	"github.com/patchwatch/patchwatch/internal/ports"
)

const stateEndpoint = "/api/v1/state"

// VersionClient implements ports.VersionSource over the build manifest and
// the target's management API.
type VersionClient struct {
	client      ports.HTTPClient
	manifestURL string
	controlURL  string
	apiKey      string
}

// NewVersionClient creates a version source for one target.
func NewVersionClient(client ports.HTTPClient, manifestURL, controlURL, apiKey string) *VersionClient {
	return &VersionClient{
		client:      client,
		manifestURL: manifestURL,
		controlURL:  strings.TrimRight(controlURL, "/"),
		apiKey:      apiKey,
	}
}

// manifestEntry is one published build in the manifest document.
type manifestEntry struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
}

// LatestBuild fetches the manifest and returns the most recently published
// build. Returns domain.ErrNoBuilds when the manifest is empty.
func (v *VersionClient) LatestBuild(ctx context.Context) (domain.Build, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.manifestURL, nil)
	if err != nil {
		return domain.Build{}, fmt.Errorf("create request: %w", err)
	}

	var entries []manifestEntry
	if err := doJSON(v.client, req, &entries); err != nil {
		return domain.Build{}, fmt.Errorf("fetch manifest: %w", err)
	}

	builds := make([]domain.Build, len(entries))
	for i, e := range entries {
		builds[i] = domain.Build{ID: e.ID, PublishedAt: e.PublishedAt}
	}
	return domain.LatestBuild(builds)
}

// RunningBuild asks the management API which build the target is running.
func (v *VersionClient) RunningBuild(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.controlURL+stateEndpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	var state struct {
		Build string `json:"build"`
	}
	if err := doJSON(v.client, req, &state); err != nil {
		return "", fmt.Errorf("fetch state: %w", err)
	}
	if state.Build == "" {
		return "", fmt.Errorf("fetch state: empty build id")
	}
	return state.Build, nil
}
