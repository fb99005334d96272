package deploy

import (
	"context"
	"math/rand"
	"os/exec"
	"strings"
	"time"

	"github.com/oklog/ulid"
)

// ResolveVersion derives the version identifier baked into image tags from
// version-control metadata. Outside a git checkout it falls back to a
// sortable timestamp so ad hoc deploys still get unique tags.
func ResolveVersion(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--short", "HEAD").Output()
	if err == nil {
		if version := strings.TrimSpace(string(out)); version != "" {
			return version
		}
	}
	return time.Now().UTC().Format("20060102150405")
}

// NewRunID returns a sortable unique identifier for one pipeline run.
func NewRunID() string {
	now := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
