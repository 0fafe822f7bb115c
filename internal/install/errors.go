package install

import (
	"fmt"
	"strings"
)

// UnsupportedPlatformError is returned for an OS without install commands.
type UnsupportedPlatformError struct {
	Platform  string
	Supported []string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q (supported: %s)", e.Platform, strings.Join(e.Supported, ", "))
}

// PackageNotFoundError is a required package without a matching file.
type PackageNotFoundError struct {
	Name    string
	Pattern string
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package %s not found (pattern %s)", e.Name, e.Pattern)
}

// AmbiguousPackageError is a required package matching several files under
// strict resolution.
type AmbiguousPackageError struct {
	Name    string
	Matches []string
}

func (e *AmbiguousPackageError) Error() string {
	return fmt.Sprintf("package %s is ambiguous: %s", e.Name, strings.Join(e.Matches, ", "))
}

// PackageInstallError is a failed step on one container. ExitCode is -1 when
// the step failed before a command ran.
type PackageInstallError struct {
	Container string
	Step      string
	ExitCode  int
	Err       error
}

func (e *PackageInstallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("package install step %s failed on %s: %v", e.Step, e.Container, e.Err)
	}
	return fmt.Sprintf("package install step %s failed on %s with exit code %d", e.Step, e.Container, e.ExitCode)
}

func (e *PackageInstallError) Unwrap() error {
	return e.Err
}
