package ports

import (
	"context"

	"github.com/patchwatch/patchwatch/internal/domain"
)

// VersionSource resolves build identities for one target.
// Both operations may fail with a transport error; the caller treats any
// failure as transient and retries on its next poll.
type VersionSource interface {
	// LatestBuild returns the most recently published build.
	// Returns domain.ErrNoBuilds when nothing has been published.
	LatestBuild(ctx context.Context) (domain.Build, error)

	// RunningBuild returns the build id the target is currently running.
	RunningBuild(ctx context.Context) (string, error)
}
