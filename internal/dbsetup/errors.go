package dbsetup

import (
	"fmt"
	"strings"
)

// UnsupportedDatabaseEngineError is returned for a database image without a
// registered strategy.
type UnsupportedDatabaseEngineError struct {
	Engine    string
	Supported []string
}

func (e *UnsupportedDatabaseEngineError) Error() string {
	return fmt.Sprintf("unsupported database engine %q (supported: %s)", e.Engine, strings.Join(e.Supported, ", "))
}

// DatabaseSetupError is a catalog setup step that failed. ExitCode is -1
// when the step could not be run at all.
type DatabaseSetupError struct {
	Step     string
	ExitCode int
	Err      error
}

func (e *DatabaseSetupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("database setup failed at step %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("database setup failed at step %s with exit code %d", e.Step, e.ExitCode)
}

func (e *DatabaseSetupError) Unwrap() error {
	return e.Err
}
