package containerizer

import "fmt"

// ContainerNotFoundError is returned when no container has the requested name.
type ContainerNotFoundError struct {
	Name string
	Err  error
}

func (e *ContainerNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("container %s not found: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("container %s not found", e.Name)
}

func (e *ContainerNotFoundError) Unwrap() error { return e.Err }
