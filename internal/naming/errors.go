package naming

import "fmt"

// MalformedNameError is returned when a container name does not split into
// exactly project, service and instance.
type MalformedNameError struct {
	Name   string
	Reason string
}

func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("malformed container name %q: %s", e.Name, e.Reason)
}

// MalformedImageRefError is returned when an image string has no tag separator.
type MalformedImageRefError struct {
	Ref string
}

func (e *MalformedImageRefError) Error() string {
	return fmt.Sprintf("malformed image reference %q: expected repository:tag", e.Ref)
}

// MalformedProjectNameError is returned when a project name does not carry
// enough delimited fields to derive image references from.
type MalformedProjectNameError struct {
	Name      string
	Delimiter string
	Want      int
	Got       int
	Reason    string
}

func (e *MalformedProjectNameError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed project name %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("malformed project name %q: need at least %d %q-delimited segments, got %d",
		e.Name, e.Want, e.Delimiter, e.Got)
}
