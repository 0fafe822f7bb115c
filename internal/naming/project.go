package naming

import (
	"fmt"
	"strings"
)

// ProjectIdentity names the platform and database a topology is built from.
// Construct it with NewProjectIdentity or ParseProjectIdentity; the zero value
// is not useful.
type ProjectIdentity struct {
	platformName    string
	platformVersion string
	databaseName    string
	databaseVersion string
	name            string
}

// NewProjectIdentity builds an identity from its four fields. No field may
// contain the project delimiter, since the name could not be split back.
func NewProjectIdentity(platformName, platformVersion, databaseName, databaseVersion string) (ProjectIdentity, error) {
	fields := []string{platformName, platformVersion, databaseName, databaseVersion}
	joined := strings.Join(fields, DefaultProjectDelimiter)
	for _, f := range fields {
		if f == "" || strings.Contains(f, DefaultProjectDelimiter) {
			return ProjectIdentity{}, &MalformedProjectNameError{
				Name:      joined,
				Delimiter: DefaultProjectDelimiter,
				Reason:    fmt.Sprintf("field %q is empty or contains the delimiter %q", f, DefaultProjectDelimiter),
			}
		}
	}

	return ProjectIdentity{
		platformName:    platformName,
		platformVersion: platformVersion,
		databaseName:    databaseName,
		databaseVersion: databaseVersion,
		name:            joined,
	}, nil
}

// IdentityFromImages builds an identity from a platform and a database image.
func IdentityFromImages(platform, database ImageRef) (ProjectIdentity, error) {
	return NewProjectIdentity(platform.Repository, platform.Tag, database.Repository, database.Tag)
}

// ParseProjectIdentity reads the identity out of the trailing four fields of a
// project name. Any leading fields are ignored.
func ParseProjectIdentity(projectName string) (ProjectIdentity, error) {
	platform, err := PlatformImageRef(projectName, DefaultProjectDelimiter)
	if err != nil {
		return ProjectIdentity{}, err
	}
	database, err := DatabaseImageRef(projectName, DefaultProjectDelimiter)
	if err != nil {
		return ProjectIdentity{}, err
	}
	return IdentityFromImages(platform, database)
}

// Name returns the delimiter-joined project name.
func (p ProjectIdentity) Name() string { return p.name }

// PlatformImage returns the platform image reference.
func (p ProjectIdentity) PlatformImage() ImageRef {
	return ImageRef{Repository: p.platformName, Tag: p.platformVersion}
}

// DatabaseImage returns the database image reference.
func (p ProjectIdentity) DatabaseImage() ImageRef {
	return ImageRef{Repository: p.databaseName, Tag: p.databaseVersion}
}

func (p ProjectIdentity) String() string {
	return fmt.Sprintf("%s (platform=%s, database=%s)", p.name, p.PlatformImage(), p.DatabaseImage())
}
