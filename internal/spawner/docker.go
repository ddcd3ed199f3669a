// Package spawner implements hook.Spawner on top of the Docker Engine API,
// launching each declared child hook as its own container and pointing it
// at the broker endpoint the parent hook just bound or connected to. No
// network or host configuration is set on the container, so it runs on the
// Docker daemon's default network.
package spawner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/google/uuid"

	"github.com/dyluth/hookbus/pkg/hook"
)

// Label keys attached to every container this spawner creates, so a
// companion CLI can discover and group them the same way an instance
// lister groups containers by project label.
const (
	LabelProject   = "hookbus.project"
	LabelRunID     = "hookbus.run_id"
	LabelHookName  = "hookbus.hook.name"
	LabelHookType  = "hookbus.hook.type"
)

// DockerSpawner starts each ChildSpec as a container named after the hook,
// labeled for later discovery, with the broker endpoint injected as
// environment variables.
type DockerSpawner struct {
	cli     *client.Client
	project string
	runID   string
}

// NewDockerSpawner validates that the Docker daemon is reachable and
// returns a spawner that labels every container it starts under project.
func NewDockerSpawner(ctx context.Context, project string) (*DockerSpawner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("spawner: create docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("spawner: docker daemon not accessible: %w", err)
	}
	return &DockerSpawner{cli: cli, project: project, runID: uuid.New().String()}, nil
}

// Close releases the underlying Docker client.
func (s *DockerSpawner) Close() error {
	return s.cli.Close()
}

func (s *DockerSpawner) containerName(spec hook.ChildSpec) string {
	return fmt.Sprintf("hookbus-%s-%s", s.project, spec.Name)
}

func (s *DockerSpawner) labels(spec hook.ChildSpec) map[string]string {
	return map[string]string{
		LabelProject:  s.project,
		LabelRunID:    s.runID,
		LabelHookName: spec.Name,
		LabelHookType: spec.Type,
	}
}

// Spawn starts spec as a new container, passing the broker endpoint it
// should connect to via HOOKBUS_BROKER_HOST/HOOKBUS_BROKER_PORT and the
// hook's own requested name/type via HOOKBUS_NAME/HOOKBUS_TYPE.
func (s *DockerSpawner) Spawn(ctx context.Context, spec hook.ChildSpec, brokerHost string, brokerPort int) (hook.Child, error) {
	image, _ := spec.Options["image"].(string)
	if image == "" {
		return nil, fmt.Errorf("spawner: ChildSpec %q missing required \"image\" option", spec.Name)
	}

	env := []string{
		fmt.Sprintf("HOOKBUS_BROKER_HOST=%s", brokerHost),
		fmt.Sprintf("HOOKBUS_BROKER_PORT=%d", brokerPort),
		fmt.Sprintf("HOOKBUS_NAME=%s", spec.Name),
		fmt.Sprintf("HOOKBUS_TYPE=%s", spec.Type),
	}

	cfg := &container.Config{
		Image:  image,
		Cmd:    append([]string{spec.Command}, spec.Args...),
		Env:    env,
		Labels: s.labels(spec),
	}

	name := s.containerName(spec)
	created, err := s.cli.ContainerCreate(ctx, cfg, nil, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("spawner: create container %s: %w", name, err)
	}
	if err := s.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("spawner: start container %s: %w", name, err)
	}

	return &dockerChild{cli: s.cli, id: created.ID, name: spec.Name}, nil
}

// dockerChild is a running container started by DockerSpawner.
type dockerChild struct {
	cli  *client.Client
	id   string
	name string
}

func (c *dockerChild) Name() string { return c.name }

func (c *dockerChild) Wait(ctx context.Context) error {
	statusCh, errCh := c.cli.ContainerWait(ctx, c.id, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("spawner: container %s exited with status %d", c.name, status.StatusCode)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("spawner: wait container %s: %w", c.name, err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *dockerChild) Kill(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	timeout := 5
	if err := c.cli.ContainerStop(stopCtx, c.id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("spawner: stop container %s: %w", c.name, err)
	}
	return c.cli.ContainerRemove(ctx, c.id, container.RemoveOptions{Force: true})
}

var _ io.Closer = (*DockerSpawner)(nil)
