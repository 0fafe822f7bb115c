package containerizer

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/common"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"zonerun/pkg/logging"
)

const (
	engineSubsystem = "DockerEngine"

	composeProjectLabel = "com.docker.compose.project"

	execInspectInterval = 50 * time.Millisecond
)

// engineAPI is the subset of the Docker Engine client used by EngineRuntime.
type engineAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (common.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error)
}

// EngineRuntime implements ContainerRuntime on the Docker Engine API. Compose
// has no Engine API, so bring-up and teardown go through the CLI runtime.
type EngineRuntime struct {
	*DockerRuntime
	api engineAPI
}

// NewEngineRuntime creates a runtime from the DOCKER_* environment.
func NewEngineRuntime() (*EngineRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker engine client: %w", err)
	}

	compose, err := NewDockerRuntime()
	if err != nil {
		return nil, err
	}

	return &EngineRuntime{DockerRuntime: compose, api: cli}, nil
}

// ListContainers finds the project's containers by their compose label
func (e *EngineRuntime) ListContainers(ctx context.Context, project Project) ([]Container, error) {
	list, err := e.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", composeProjectLabel+"="+project.Name)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers of project %s: %w", project.Name, err)
	}

	containers := make([]Container, 0, len(list))
	for _, c := range list {
		if len(c.Names) == 0 {
			continue
		}
		containers = append(containers, Container{Name: strings.TrimPrefix(c.Names[0], "/"), ID: c.ID})
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })
	return containers, nil
}

// BringUp starts the project through compose and lists it through the API
func (e *EngineRuntime) BringUp(ctx context.Context, project Project, scale map[string]int) ([]Container, error) {
	if _, err := e.DockerRuntime.BringUp(ctx, project, scale); err != nil {
		return nil, err
	}
	return e.ListContainers(ctx, project)
}

// GetContainer resolves a container by name
func (e *EngineRuntime) GetContainer(ctx context.Context, name string) (Container, error) {
	info, err := e.api.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return Container{}, &ContainerNotFoundError{Name: name, Err: err}
		}
		return Container{}, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	return Container{Name: strings.TrimPrefix(info.Name, "/"), ID: info.ID}, nil
}

// Hostname returns the configured hostname of the container
func (e *EngineRuntime) Hostname(ctx context.Context, c Container) (string, error) {
	info, err := e.api.ContainerInspect(ctx, containerKey(c))
	if err != nil {
		return "", fmt.Errorf("failed to inspect container %s: %w", c.Name, err)
	}
	if info.Config == nil {
		return "", fmt.Errorf("container %s has no config", c.Name)
	}
	return info.Config.Hostname, nil
}

// Exec starts a shell command inside the container and attaches to it
func (e *EngineRuntime) Exec(ctx context.Context, c Container, command string, opts ExecOptions) (Process, error) {
	created, err := e.api.ContainerExecCreate(ctx, containerKey(c), container.ExecOptions{
		User:         opts.User,
		WorkingDir:   opts.WorkDir,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"sh", "-c", command},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec on %s: %w", c.Name, err)
	}

	attached, err := e.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec on %s: %w", c.Name, err)
	}

	logging.Debug(engineSubsystem, "Started exec %s on %s", shortID(created.ID), c.Name)

	pr, pw := io.Pipe()
	go func() {
		defer attached.Close()
		_, err := stdcopy.StdCopy(pw, pw, attached.Reader)
		pw.CloseWithError(err)
	}()

	return &engineProcess{ctx: ctx, api: e.api, execID: created.ID, output: pr}, nil
}

type engineProcess struct {
	ctx    context.Context
	api    engineAPI
	execID string
	output *io.PipeReader
}

func (p *engineProcess) Output() io.Reader { return p.output }

// Wait polls the exec until the engine reports it stopped. The stream ends
// slightly before the engine records the exit code.
func (p *engineProcess) Wait() (int, error) {
	for {
		info, err := p.api.ContainerExecInspect(p.ctx, p.execID)
		if err != nil {
			return -1, fmt.Errorf("failed to inspect exec %s: %w", shortID(p.execID), err)
		}
		if !info.Running {
			return info.ExitCode, nil
		}
		select {
		case <-p.ctx.Done():
			return -1, p.ctx.Err()
		case <-time.After(execInspectInterval):
		}
	}
}

// PutArchive extracts a tar stream into destPath inside the container
func (e *EngineRuntime) PutArchive(ctx context.Context, c Container, destPath string, archive io.Reader) error {
	if err := e.api.CopyToContainer(ctx, containerKey(c), destPath, archive, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("failed to put archive into %s:%s: %w", c.Name, destPath, err)
	}
	return nil
}

// GetArchive streams a tar archive of srcPath out of the container
func (e *EngineRuntime) GetArchive(ctx context.Context, c Container, srcPath string) (io.ReadCloser, error) {
	rc, _, err := e.api.CopyFromContainer(ctx, containerKey(c), srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to copy %s:%s: %w", c.Name, srcPath, err)
	}
	return rc, nil
}

func containerKey(c Container) string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
