// Package execute runs single commands inside containers and turns their
// output into log entries.
package execute

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"zonerun/internal/containerizer"
	"zonerun/pkg/logging"
)

const subsystem = "Execute"

// Options holds configuration for one command
type Options struct {
	User    string // User to run as, empty for the image default
	WorkDir string // Working directory, empty for the image default
	Stream  bool   // Forward output as it arrives instead of after completion
}

// Runner executes a command in a container and returns its exit code.
type Runner interface {
	Execute(ctx context.Context, c containerizer.Container, command string, opts Options) (int, error)
}

// Executor is the Runner backed by a container runtime.
type Executor struct {
	runtime containerizer.ContainerRuntime
}

var _ Runner = (*Executor)(nil)

// NewExecutor creates an executor on top of runtime.
func NewExecutor(runtime containerizer.ContainerRuntime) *Executor {
	return &Executor{runtime: runtime}
}

// Execute runs command and returns its exit code. The error is only set when
// the command could not be run or its output could not be read; a nonzero
// exit code is not an error at this level.
func (e *Executor) Execute(ctx context.Context, c containerizer.Container, command string, opts Options) (int, error) {
	logging.Debug(subsystem, "Executing in container [%s] as user [%s]: %s", c.Name, opts.User, command)

	proc, err := e.runtime.Exec(ctx, c, command, containerizer.ExecOptions{User: opts.User, WorkDir: opts.WorkDir})
	if err != nil {
		return -1, fmt.Errorf("failed to start command in %s: %w", c.Name, err)
	}

	var readErr error
	if opts.Stream {
		readErr = forward(c.Name, proc.Output())
	} else {
		var out []byte
		out, readErr = io.ReadAll(proc.Output())
		if len(out) > 0 {
			logging.Debug(subsystem, "Output of [%s] in %s:\n%s", command, c.Name, strings.TrimRight(string(out), "\n"))
		}
	}

	code, waitErr := proc.Wait()
	if err := errors.Join(readErr, waitErr); err != nil {
		return code, fmt.Errorf("failed to complete command in %s: %w", c.Name, err)
	}

	logging.Debug(subsystem, "Command in %s exited with code %d", c.Name, code)
	return code, nil
}

// forward logs every line of r at INFO as soon as it arrives. A trailing
// partial line is logged when the stream ends.
func forward(container string, r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			logging.Log(logging.LevelInfo, subsystem, "[%s] %s", container, strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Run executes command and converts a nonzero exit code into a
// RuntimeCommandError.
func Run(ctx context.Context, r Runner, c containerizer.Container, command string, opts Options) error {
	code, err := r.Execute(ctx, c, command, opts)
	if err != nil {
		return err
	}
	if code != 0 {
		return &RuntimeCommandError{Container: c.Name, Command: command, ExitCode: code}
	}
	return nil
}
