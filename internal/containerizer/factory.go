package containerizer

import (
	"fmt"
	"strings"
)

// RuntimeType defines the type of container runtime
type RuntimeType string

const (
	// RuntimeTypeDocker drives everything through the docker CLI.
	RuntimeTypeDocker RuntimeType = "docker"
	// RuntimeTypeDockerEngine talks to the Docker Engine API for exec and
	// archive operations and uses the CLI for compose.
	RuntimeTypeDockerEngine RuntimeType = "docker-engine"
)

// NewContainerRuntime creates a new container runtime based on the specified type
func NewContainerRuntime(runtimeType string) (ContainerRuntime, error) {
	rt := RuntimeType(strings.ToLower(runtimeType))

	switch rt {
	case RuntimeTypeDocker, "":
		// Default to Docker if not specified
		return NewDockerRuntime()
	case RuntimeTypeDockerEngine:
		return NewEngineRuntime()
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", runtimeType)
	}
}
