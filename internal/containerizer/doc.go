// Package containerizer provides the container runtime abstraction used to
// drive a compose test topology.
//
// The orchestration code never talks to docker directly. Everything it needs
// from the container backend goes through ContainerRuntime:
//
//   - BringUp / TearDown: start and destroy a compose project
//   - ListContainers / GetContainer: resolve container handles by name
//   - Exec: run a shell command inside a container and read its output
//   - PutArchive / GetArchive: copy tar archives in and out of a container
//   - Hostname: the hostname other containers use to reach a container
//
// # Implementations
//
// DockerRuntime shells out to the docker CLI (docker compose, docker exec,
// docker cp, docker inspect). It only needs docker on PATH.
//
// EngineRuntime talks to the Docker Engine API through the official Go client
// for exec, archive and inspect calls, which gives exact exit codes and avoids
// one process per call. Compose has no Engine API, so it embeds a
// DockerRuntime for BringUp and TearDown.
//
// NewContainerRuntime selects one by name ("docker" or "docker-engine").
//
// # Exec semantics
//
// Exec returns a Process as soon as the command started. Its Output interleaves
// stdout and stderr in arrival order and has to be read to EOF before Wait
// returns the exit code; the command may block on a full pipe otherwise.
//
// Commands run through "sh -c", so callers can rely on shell quoting and
// redirection.
package containerizer
