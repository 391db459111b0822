package domain

import (
	"strings"
	"time"
)

// Build is one published software revision. The ID is an opaque string; two
// builds are the same revision when their IDs match case-insensitively.
type Build struct {
	ID          string
	PublishedAt time.Time
}

// Matches reports whether id refers to this build, ignoring case.
func (b Build) Matches(id string) bool {
	return strings.EqualFold(b.ID, id)
}

// LatestBuild returns the build with the most recent publish timestamp.
// Returns ErrNoBuilds when the collection is empty.
func LatestBuild(builds []Build) (Build, error) {
	if len(builds) == 0 {
		return Build{}, ErrNoBuilds
	}
	latest := builds[0]
	for _, b := range builds[1:] {
		if b.PublishedAt.After(latest.PublishedAt) {
			latest = b
		}
	}
	return latest, nil
}
