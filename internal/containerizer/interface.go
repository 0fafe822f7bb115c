package containerizer

import (
	"context"
	"io"
)

// ContainerRuntime defines the interface for container runtime operations
// needed to drive a compose topology.
type ContainerRuntime interface {
	// BringUp starts every service of the project, scaling services as given,
	// and returns the containers that belong to it
	BringUp(ctx context.Context, project Project, scale map[string]int) ([]Container, error)

	// TearDown stops and removes the project's containers and networks
	TearDown(ctx context.Context, project Project, includeVolumes bool) error

	// ListContainers returns the containers of an already running project
	ListContainers(ctx context.Context, project Project) ([]Container, error)

	// GetContainer resolves a container by name
	GetContainer(ctx context.Context, name string) (Container, error)

	// Exec starts a command inside a container. The returned process output
	// must be drained before Wait reports the exit code.
	Exec(ctx context.Context, c Container, command string, opts ExecOptions) (Process, error)

	// PutArchive extracts a tar archive into the container under destPath
	PutArchive(ctx context.Context, c Container, destPath string, archive io.Reader) error

	// GetArchive returns a tar archive of srcPath inside the container
	GetArchive(ctx context.Context, c Container, srcPath string) (io.ReadCloser, error)

	// Hostname returns the configured hostname of a container
	Hostname(ctx context.Context, c Container) (string, error)
}

// Project describes a compose project on disk.
type Project struct {
	Name      string   // Compose project name
	Directory string   // Project directory containing the compose file
	Files     []string // Optional compose files, relative to Directory
}

// Container is a handle on a running container.
type Container struct {
	Name string
	ID   string
}

// ExecOptions holds configuration for running a command in a container
type ExecOptions struct {
	User    string // User to run as, empty for the image default
	WorkDir string // Working directory, empty for the image default
}

// Process is a command started by Exec.
type Process interface {
	// Output returns stdout and stderr, interleaved in arrival order
	Output() io.Reader

	// Wait blocks until the command exited and returns its exit code
	Wait() (int, error)
}
