package execute

import "fmt"

// RuntimeCommandError is a command that exited nonzero.
type RuntimeCommandError struct {
	Container string
	Command   string
	ExitCode  int
}

func (e *RuntimeCommandError) Error() string {
	return fmt.Sprintf("command %q in container %s exited with code %d", e.Command, e.Container, e.ExitCode)
}
