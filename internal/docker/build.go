package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/term"
)

// BuildSource describes where an image is built from.
type BuildSource struct {
	Context    string
	Dockerfile string
	BuildArgs  map[string]string
}

// BuildImage builds an image through the Engine API, mimicking `docker build`
// behavior: the build context is streamed as a tar honoring .dockerignore,
// and daemon output is relayed to stdout.
func BuildImage(ctx context.Context, dockerClient *client.Client, imageRef string, source BuildSource) error {
	buildOpts := types.ImageBuildOptions{
		Tags:       []string{imageRef},
		Dockerfile: source.Dockerfile,
		BuildArgs:  make(map[string]*string, len(source.BuildArgs)),
		Remove:     true,
	}
	for k, v := range source.BuildArgs {
		value := v
		buildOpts.BuildArgs[k] = &value
	}

	absContext, err := filepath.Abs(source.Context)
	if err != nil {
		return fmt.Errorf("failed to resolve build context %q: %w", source.Context, err)
	}

	buildContextTar, err := archive.TarWithOptions(absContext, &archive.TarOptions{
		ExcludePatterns: dockerIgnorePatterns(absContext),
	})
	if err != nil {
		return fmt.Errorf("failed to create build context archive from %q: %w", absContext, err)
	}
	defer buildContextTar.Close()

	resp, err := dockerClient.ImageBuild(ctx, buildContextTar, buildOpts)
	if err != nil {
		return fmt.Errorf("failed to build image %s: %w", imageRef, err)
	}
	defer resp.Body.Close()

	termFd, isTerm := term.GetFdInfo(os.Stdout)
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, os.Stdout, termFd, isTerm, nil); err != nil {
		return fmt.Errorf("image build for %s failed: %w", imageRef, err)
	}
	return nil
}

// dockerIgnorePatterns reads .dockerignore in the context directory. A
// missing file yields no patterns.
func dockerIgnorePatterns(contextDir string) []string {
	data, err := os.ReadFile(filepath.Join(contextDir, ".dockerignore"))
	if err != nil {
		return nil
	}
	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns
}
