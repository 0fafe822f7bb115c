package naming

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// ContainerNameSeparator joins the parts of a container name.
	ContainerNameSeparator = "_"

	// DefaultProjectDelimiter separates the fields of a structured project name.
	DefaultProjectDelimiter = "-"

	imageTagSeparator = ":"
)

// Service is the compose service name of one of the topology roles.
type Service string

const (
	// ServiceDatabase runs the relational database backing the catalog.
	ServiceDatabase Service = "catalog"
	// ServiceProvider runs the catalog service provider.
	ServiceProvider Service = "irods-catalog-provider"
	// ServiceConsumer runs a catalog service consumer.
	ServiceConsumer Service = "irods-catalog-consumer"
)

// Services lists every known role in topology order.
func Services() []Service {
	return []Service{ServiceDatabase, ServiceProvider, ServiceConsumer}
}

// ContainerRef identifies one container of a topology.
type ContainerRef struct {
	Project  string
	Service  string
	Instance int
}

// Name returns the canonical container name for the reference.
func (r ContainerRef) Name() string {
	return ContainerName(r.Project, r.Service, r.Instance)
}

// Is reports whether the reference belongs to the given service. The service
// segment has to match exactly; a service that merely contains the role name
// is a different service.
func (r ContainerRef) Is(service Service) bool {
	return r.Service == string(service)
}

// ContainerName joins project, service and instance the way compose names
// containers.
func ContainerName(project, service string, instance int) string {
	return strings.Join([]string{project, service, strconv.Itoa(instance)}, ContainerNameSeparator)
}

// ParseContainerName splits a container name into its reference. Exactly three
// segments are required and the instance must be a positive integer.
func ParseContainerName(name string) (ContainerRef, error) {
	parts := strings.Split(name, ContainerNameSeparator)
	if len(parts) != 3 {
		return ContainerRef{}, &MalformedNameError{
			Name:   name,
			Reason: fmt.Sprintf("expected 3 %q-separated segments, got %d", ContainerNameSeparator, len(parts)),
		}
	}
	for i, part := range parts[:2] {
		if part == "" {
			return ContainerRef{}, &MalformedNameError{Name: name, Reason: fmt.Sprintf("segment %d is empty", i+1)}
		}
	}

	instance, err := strconv.Atoi(parts[2])
	if err != nil || instance < 1 {
		return ContainerRef{}, &MalformedNameError{Name: name, Reason: fmt.Sprintf("instance %q is not a positive integer", parts[2])}
	}

	return ContainerRef{Project: parts[0], Service: parts[1], Instance: instance}, nil
}

// IsServiceContainer reports whether the named container runs the given
// service. Names that do not parse never match.
func IsServiceContainer(name string, service Service) bool {
	ref, err := ParseContainerName(name)
	if err != nil {
		return false
	}
	return ref.Is(service)
}

// ComposeProjectName normalizes a project name the way compose does before it
// names containers: lowercase, with dots dropped.
func ComposeProjectName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, ".", ""))
}

// ImageRef is a repository:tag pair.
type ImageRef struct {
	Repository string
	Tag        string
}

// String formats the reference as repository:tag.
func (r ImageRef) String() string {
	return r.Repository + imageTagSeparator + r.Tag
}

// ParseImageRef splits an image string on the first ':'.
func ParseImageRef(s string) (ImageRef, error) {
	repo, tag, ok := strings.Cut(s, imageTagSeparator)
	if !ok {
		return ImageRef{}, &MalformedImageRefError{Ref: s}
	}
	return ImageRef{Repository: repo, Tag: tag}, nil
}

// PlatformImageRef derives the OS platform image from the fourth and third
// from last fields of a structured project name.
func PlatformImageRef(projectName, delimiter string) (ImageRef, error) {
	fields, err := trailingFields(projectName, delimiter, 4)
	if err != nil {
		return ImageRef{}, err
	}
	return ImageRef{Repository: fields[0], Tag: fields[1]}, nil
}

// DatabaseImageRef derives the database image from the last two fields of a
// structured project name.
func DatabaseImageRef(projectName, delimiter string) (ImageRef, error) {
	fields, err := trailingFields(projectName, delimiter, 2)
	if err != nil {
		return ImageRef{}, err
	}
	return ImageRef{Repository: fields[0], Tag: fields[1]}, nil
}

func trailingFields(projectName, delimiter string, n int) ([]string, error) {
	if delimiter == "" {
		delimiter = DefaultProjectDelimiter
	}
	parts := strings.Split(projectName, delimiter)
	if len(parts) < n {
		return nil, &MalformedProjectNameError{Name: projectName, Delimiter: delimiter, Want: n, Got: len(parts)}
	}
	return parts[len(parts)-n:], nil
}
