// Package containerizertest provides an in-memory ContainerRuntime for tests.
package containerizertest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"zonerun/internal/containerizer"
	"zonerun/internal/naming"
)

// ExecCall records one Exec invocation.
type ExecCall struct {
	Container string
	Command   string
	User      string
	WorkDir   string
}

// ExecResult is what a faked command produces.
type ExecResult struct {
	Output   string
	ExitCode int
	Err      error // returned by Exec itself
}

// Runtime is a ContainerRuntime that keeps everything in memory. All fields
// may be set before use; the zero value runs every command successfully.
type Runtime struct {
	mu sync.Mutex

	// Containers is the topology returned by BringUp and ListContainers.
	Containers []containerizer.Container

	// ExecFunc decides the result of each command. Nil means exit 0.
	ExecFunc func(c containerizer.Container, command string) ExecResult

	// GetArchiveFunc serves GetArchive. Nil returns "logs-of-<name>".
	GetArchiveFunc func(c containerizer.Container, srcPath string) (io.ReadCloser, error)

	// PutArchiveErr fails PutArchive for the named containers.
	PutArchiveErr map[string]error

	BringUpErr  error
	TearDownErr error

	execs      []ExecCall
	archives   map[string][]byte
	bringUps   int
	tearDowns  int
	scale      map[string]int
	volumesToo bool
}

var _ containerizer.ContainerRuntime = (*Runtime)(nil)

// Topology builds the containers of a project with one catalog, one provider
// and the given number of consumers.
func Topology(project string, consumers int) []containerizer.Container {
	containers := []containerizer.Container{
		{Name: naming.ContainerName(project, string(naming.ServiceDatabase), 1)},
		{Name: naming.ContainerName(project, string(naming.ServiceProvider), 1)},
	}
	for i := 1; i <= consumers; i++ {
		containers = append(containers, containerizer.Container{Name: naming.ContainerName(project, string(naming.ServiceConsumer), i)})
	}
	for i := range containers {
		containers[i].ID = "id-" + containers[i].Name
	}
	return containers
}

func (r *Runtime) BringUp(_ context.Context, _ containerizer.Project, scale map[string]int) ([]containerizer.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bringUps++
	r.scale = scale
	if r.BringUpErr != nil {
		return nil, r.BringUpErr
	}
	return append([]containerizer.Container(nil), r.Containers...), nil
}

func (r *Runtime) TearDown(_ context.Context, _ containerizer.Project, includeVolumes bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tearDowns++
	r.volumesToo = includeVolumes
	return r.TearDownErr
}

func (r *Runtime) ListContainers(_ context.Context, _ containerizer.Project) ([]containerizer.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]containerizer.Container(nil), r.Containers...), nil
}

func (r *Runtime) GetContainer(_ context.Context, name string) (containerizer.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.Containers {
		if c.Name == name {
			return c, nil
		}
	}
	return containerizer.Container{}, &containerizer.ContainerNotFoundError{Name: name}
}

func (r *Runtime) Exec(_ context.Context, c containerizer.Container, command string, opts containerizer.ExecOptions) (containerizer.Process, error) {
	r.mu.Lock()
	r.execs = append(r.execs, ExecCall{Container: c.Name, Command: command, User: opts.User, WorkDir: opts.WorkDir})
	fn := r.ExecFunc
	r.mu.Unlock()

	var res ExecResult
	if fn != nil {
		res = fn(c, command)
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return &process{output: strings.NewReader(res.Output), code: res.ExitCode}, nil
}

func (r *Runtime) PutArchive(_ context.Context, c containerizer.Container, destPath string, archive io.Reader) error {
	r.mu.Lock()
	err := r.PutArchiveErr[c.Name]
	r.mu.Unlock()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(archive)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.archives == nil {
		r.archives = map[string][]byte{}
	}
	r.archives[c.Name+":"+destPath] = data
	return nil
}

func (r *Runtime) GetArchive(_ context.Context, c containerizer.Container, srcPath string) (io.ReadCloser, error) {
	if r.GetArchiveFunc != nil {
		return r.GetArchiveFunc(c, srcPath)
	}
	return io.NopCloser(bytes.NewBufferString("logs-of-" + c.Name)), nil
}

func (r *Runtime) Hostname(_ context.Context, c containerizer.Container) (string, error) {
	return fmt.Sprintf("host-%s", c.Name), nil
}

// Execs returns every command run so far, in call order.
func (r *Runtime) Execs() []ExecCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ExecCall(nil), r.execs...)
}

// ExecsOn returns the commands run on one container, in call order.
func (r *Runtime) ExecsOn(name string) []string {
	var commands []string
	for _, call := range r.Execs() {
		if call.Container == name {
			commands = append(commands, call.Command)
		}
	}
	return commands
}

// Archive returns the bytes put into container name at destPath.
func (r *Runtime) Archive(name, destPath string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.archives[name+":"+destPath]
	return data, ok
}

// Archives returns how many archives were put.
func (r *Runtime) Archives() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.archives)
}

// BringUps returns how often BringUp was called.
func (r *Runtime) BringUps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bringUps
}

// TearDowns returns how often TearDown was called.
func (r *Runtime) TearDowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tearDowns
}

// TornDownWithVolumes reports whether the last teardown removed volumes.
func (r *Runtime) TornDownWithVolumes() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.volumesToo
}

// Scale returns the scale overrides of the last BringUp.
func (r *Runtime) Scale() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scale
}

type process struct {
	output io.Reader
	code   int
}

func (p *process) Output() io.Reader { return p.output }

func (p *process) Wait() (int, error) { return p.code, nil }
