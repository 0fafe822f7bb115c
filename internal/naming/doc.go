// Package naming derives container, service and image identities for a test
// topology from structured project names.
//
// Everything in this package is pure: no container runtime or filesystem is
// consulted. Other packages go through it whenever they need to turn a
// project name into a container name or an image reference.
//
// # Container names
//
// Containers follow the compose naming scheme with underscore separators:
//
//	<project>_<service>_<instance>
//
// The project segment must not contain an underscore, otherwise the name can
// not be split back into its parts. ParseContainerName enforces that split.
//
// # Project names
//
// Project names carry the platform and database images as their trailing
// four '-' separated fields:
//
//	[prefix-]<platform>-<platform-version>-<database>-<database-version>
//
// PlatformImageRef and DatabaseImageRef read those fields back out. A field
// that itself contains the delimiter can not be recovered; callers are
// expected to keep image names free of it.
package naming
