package irodssetup

import (
	"fmt"
	"time"
)

// UnsupportedRoleError is returned by Build for an unknown role.
type UnsupportedRoleError struct {
	Role      Role
	Supported []Role
}

func (e *UnsupportedRoleError) Error() string {
	return fmt.Sprintf("unsupported server role %q (supported: %v)", e.Role, e.Supported)
}

// SetupScriptError is a failed setup step on one container. ExitCode is -1
// when the step failed before a command ran.
type SetupScriptError struct {
	Container string
	Step      string
	ExitCode  int
	Err       error
}

func (e *SetupScriptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("setup step %s failed on %s: %v", e.Step, e.Container, e.Err)
	}
	return fmt.Sprintf("setup step %s failed on %s with exit code %d", e.Step, e.Container, e.ExitCode)
}

func (e *SetupScriptError) Unwrap() error {
	return e.Err
}

// SetupTimeoutError is a container that did not finish setting up in time.
type SetupTimeoutError struct {
	Container string
	Elapsed   time.Duration
}

func (e *SetupTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for setup of %s to finish", e.Elapsed, e.Container)
}
