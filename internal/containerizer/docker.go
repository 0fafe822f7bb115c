package containerizer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"

	"zonerun/pkg/logging"
)

const dockerSubsystem = "Docker"

// DockerRuntime implements ContainerRuntime using the docker CLI and its
// compose plugin.
type DockerRuntime struct{}

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// lookPath is a variable to allow mocking in tests
var lookPath = exec.LookPath

// NewDockerRuntime creates a new Docker runtime instance
func NewDockerRuntime() (*DockerRuntime, error) {
	if _, err := lookPath("docker"); err != nil {
		return nil, fmt.Errorf("docker command not found in PATH: %w", err)
	}

	ctx := context.Background()
	cmd := execCommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("docker daemon not accessible: %w", err)
	}

	return &DockerRuntime{}, nil
}

// composeArgs returns the leading arguments of every compose invocation for
// the project. Compatibility mode keeps the underscore container names.
func composeArgs(project Project) []string {
	args := []string{"compose", "--compatibility"}
	if project.Directory != "" {
		args = append(args, "--project-directory", project.Directory)
	}
	for _, f := range project.Files {
		args = append(args, "-f", f)
	}
	if project.Name != "" {
		args = append(args, "-p", project.Name)
	}
	return args
}

// scaleArgs renders scale overrides in a stable order.
func scaleArgs(scale map[string]int) []string {
	services := make([]string, 0, len(scale))
	for svc := range scale {
		services = append(services, svc)
	}
	sort.Strings(services)

	var args []string
	for _, svc := range services {
		args = append(args, "--scale", fmt.Sprintf("%s=%d", svc, scale[svc]))
	}
	return args
}

// BringUp starts the project and returns its containers
func (d *DockerRuntime) BringUp(ctx context.Context, project Project, scale map[string]int) ([]Container, error) {
	args := append(composeArgs(project), "up", "-d")
	args = append(args, scaleArgs(scale)...)

	logging.Debug(dockerSubsystem, "Bringing up project with command: docker %s", strings.Join(args, " "))

	cmd := execCommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to bring up project %s: %w\nOutput: %s", project.Name, err, string(output))
	}
	logging.Debug(dockerSubsystem, "%s", output)

	return d.ListContainers(ctx, project)
}

// TearDown stops and removes the project
func (d *DockerRuntime) TearDown(ctx context.Context, project Project, includeVolumes bool) error {
	args := append(composeArgs(project), "down", "--remove-orphans")
	if includeVolumes {
		args = append(args, "--volumes")
	}

	logging.Info(dockerSubsystem, "Tearing down project %s", project.Name)

	cmd := execCommandContext(ctx, "docker", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to tear down project %s: %w\nOutput: %s", project.Name, err, string(output))
	}
	return nil
}

// ListContainers returns the containers of the project sorted by name
func (d *DockerRuntime) ListContainers(ctx context.Context, project Project) ([]Container, error) {
	args := append(composeArgs(project), "ps", "-a", "--format", "{{.ID}}\t{{.Name}}")

	cmd := execCommandContext(ctx, "docker", args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list containers of project %s: %w", project.Name, err)
	}

	return parseContainerList(output), nil
}

func parseContainerList(output []byte) []Container {
	var containers []Container
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, name, ok := strings.Cut(line, "\t")
		if !ok {
			name = id
		}
		containers = append(containers, Container{Name: strings.TrimPrefix(name, "/"), ID: id})
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })
	return containers
}

// GetContainer resolves a container by name
func (d *DockerRuntime) GetContainer(ctx context.Context, name string) (Container, error) {
	cmd := execCommandContext(ctx, "docker", "inspect", "-f", "{{.Id}}", name)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Container{}, &ContainerNotFoundError{Name: name, Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))}
	}
	return Container{Name: name, ID: strings.TrimSpace(string(output))}, nil
}

// Exec starts a shell command inside the container
func (d *DockerRuntime) Exec(ctx context.Context, c Container, command string, opts ExecOptions) (Process, error) {
	args := []string{"exec"}
	if opts.User != "" {
		args = append(args, "-u", opts.User)
	}
	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}
	args = append(args, c.Name, "sh", "-c", command)

	pr, pw := io.Pipe()
	cmd := execCommandContext(ctx, "docker", args...)
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("failed to start exec on %s: %w", c.Name, err)
	}

	p := &cliProcess{output: pr, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		err := cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			p.exitCode = -1
			p.err = fmt.Errorf("exec on %s interrupted: %w", c.Name, ctx.Err())
		case err == nil:
			p.exitCode = 0
		case errors.As(err, &exitErr):
			p.exitCode = exitErr.ExitCode()
		default:
			p.err = err
		}
		pw.Close()
	}()

	return p, nil
}

// cliProcess is a docker exec invocation running on the host.
type cliProcess struct {
	output   *io.PipeReader
	done     chan struct{}
	exitCode int
	err      error
}

func (p *cliProcess) Output() io.Reader { return p.output }

func (p *cliProcess) Wait() (int, error) {
	<-p.done
	return p.exitCode, p.err
}

// PutArchive extracts a tar stream into destPath inside the container
func (d *DockerRuntime) PutArchive(ctx context.Context, c Container, destPath string, archive io.Reader) error {
	cmd := execCommandContext(ctx, "docker", "cp", "-", c.Name+":"+destPath)
	cmd.Stdin = archive

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to put archive into %s:%s: %w\nOutput: %s", c.Name, destPath, err, string(output))
	}
	return nil
}

// GetArchive streams a tar archive of srcPath out of the container
func (d *DockerRuntime) GetArchive(ctx context.Context, c Container, srcPath string) (io.ReadCloser, error) {
	cmd := execCommandContext(ctx, "docker", "cp", c.Name+":"+srcPath, "-")
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start copy from %s:%s: %w", c.Name, srcPath, err)
	}

	return &cliArchive{cmd: cmd, stdout: stdout, stderr: stderr, source: c.Name + ":" + srcPath}, nil
}

// cliArchive surfaces the copy command's failure at the end of the stream.
type cliArchive struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	source string
	waited bool
	err    error
}

func (a *cliArchive) Read(p []byte) (int, error) {
	n, err := a.stdout.Read(p)
	if err == io.EOF {
		if werr := a.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (a *cliArchive) Close() error {
	a.stdout.Close()
	return a.wait()
}

func (a *cliArchive) wait() error {
	if a.waited {
		return a.err
	}
	a.waited = true
	if err := a.cmd.Wait(); err != nil {
		a.err = fmt.Errorf("failed to copy %s: %w: %s", a.source, err, strings.TrimSpace(a.stderr.String()))
	}
	return a.err
}

// Hostname returns the configured hostname of the container
func (d *DockerRuntime) Hostname(ctx context.Context, c Container) (string, error) {
	cmd := execCommandContext(ctx, "docker", "inspect", "-f", "{{.Config.Hostname}}", c.Name)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to inspect container %s: %w", c.Name, err)
	}
	return strings.TrimSpace(string(output)), nil
}
