package watch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/docker/docker/client"
)

var (
	clientOnce sync.Once
	dockerCli  *client.Client
	clientErr  error
)

// getClient builds one Docker client for all container sources. The client
// negotiates the API version with whatever daemon the environment points
// at.
func getClient() (*client.Client, error) {
	clientOnce.Do(func() {
		dockerCli, clientErr = client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	})
	if clientErr != nil {
		return nil, fmt.Errorf("create docker client: %w", clientErr)
	}
	return dockerCli, nil
}

type containerSource struct {
	id   string
	name string
	cli  *client.Client
	dead bool
}

// Container returns a source reporting the liveness of a Docker container.
// The container must be inspectable at construction; a container that is
// already stopped yields a source that reports dead, same as the pid
// oracle does for a reaped process. During polls a stopped, removed or
// uninspectable container marks the source dead for good.
func Container(ctx context.Context, id string) (Source, error) {
	cli, err := getClient()
	if err != nil {
		return nil, err
	}
	info, err := cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("inspect container %s: %w", id, err)
	}

	src := &containerSource{
		id:   info.ID,
		name: strings.TrimPrefix(info.Name, "/"),
		cli:  cli,
	}
	if info.State == nil || !info.State.Running {
		src.dead = true
	}
	return src, nil
}

func (s *containerSource) Describe() string {
	if s.name != "" {
		return "container:" + s.name
	}
	return "container:" + shortID(s.id)
}

func (s *containerSource) Dead(ctx context.Context) bool {
	if s.dead {
		return true
	}
	info, err := s.cli.ContainerInspect(ctx, s.id)
	if err != nil {
		// A cancelled poll is the loop shutting down, not a verdict.
		if ctx.Err() != nil {
			return false
		}
		s.dead = true
		return true
	}
	if info.State == nil || !info.State.Running {
		s.dead = true
	}
	return s.dead
}

// Close releases nothing: the Docker client is shared across sources and
// stays open for the life of the process.
func (s *containerSource) Close() error { return nil }

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
