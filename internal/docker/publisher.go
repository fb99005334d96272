package docker

import (
	"context"

	"github.com/docker/docker/client"
)

// Publisher builds and pushes images through one Engine API client.
type Publisher struct {
	Client *client.Client
}

func NewPublisher(ctx context.Context) (*Publisher, error) {
	dockerClient, err := NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Publisher{Client: dockerClient}, nil
}

func (p *Publisher) Build(ctx context.Context, imageRef string, source BuildSource) error {
	return BuildImage(ctx, p.Client, imageRef, source)
}

func (p *Publisher) Push(ctx context.Context, imageRef string, auth RegistryAuth) error {
	return PushImage(ctx, p.Client, imageRef, auth)
}

func (p *Publisher) Close() error {
	return p.Client.Close()
}
