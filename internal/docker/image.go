package docker

import (
	"context"
	"fmt"
	"os"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/term"
)

// RegistryAuth carries registry credentials used for push.
type RegistryAuth struct {
	ServerAddress string
	Username      string
	Password      string
}

// TagImage tags srcRef as dstRef. A no-op when they are already equal.
func TagImage(ctx context.Context, dockerClient *client.Client, srcRef, dstRef string) error {
	if srcRef == dstRef {
		return nil
	}
	if err := dockerClient.ImageTag(ctx, srcRef, dstRef); err != nil {
		return fmt.Errorf("failed to tag image %s as %s: %w", srcRef, dstRef, err)
	}
	return nil
}

// PushImage pushes imageRef to its registry, streaming daemon output to
// stdout. Push errors surface through the JSON message stream, not the
// initial API call, so the stream must be drained to completion.
func PushImage(ctx context.Context, dockerClient *client.Client, imageRef string, auth RegistryAuth) error {
	encodedAuth, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      auth.Username,
		Password:      auth.Password,
		ServerAddress: auth.ServerAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to encode registry auth: %w", err)
	}

	pushResp, err := dockerClient.ImagePush(ctx, imageRef, image.PushOptions{
		RegistryAuth: encodedAuth,
	})
	if err != nil {
		return fmt.Errorf("failed to push image %s: %w", imageRef, err)
	}
	defer pushResp.Close()

	termFd, isTerm := term.GetFdInfo(os.Stdout)
	if err := jsonmessage.DisplayJSONMessagesStream(pushResp, os.Stdout, termFd, isTerm, nil); err != nil {
		return fmt.Errorf("image push for %s failed: %w", imageRef, err)
	}
	return nil
}
