package naming

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectIdentity_NameAndInverse(t *testing.T) {
	id, err := NewProjectIdentity("ubuntu", "18.04", "postgres", "10.12")
	require.NoError(t, err)
	assert.Equal(t, "ubuntu-18.04-postgres-10.12", id.Name())

	parsed, err := ParseProjectIdentity(id.Name())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.Equal(t, ImageRef{Repository: "ubuntu", Tag: "18.04"}, parsed.PlatformImage())
	assert.Equal(t, ImageRef{Repository: "postgres", Tag: "10.12"}, parsed.DatabaseImage())
}

func TestProjectIdentity_RejectsDelimiterInField(t *testing.T) {
	_, err := NewProjectIdentity("centos-stream", "8", "postgres", "14")
	var malformed *MalformedProjectNameError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Error(), "centos-stream")

	_, err = NewProjectIdentity("ubuntu", "", "postgres", "14")
	assert.True(t, errors.As(err, &malformed))
}

func TestParseProjectIdentity_IgnoresPrefix(t *testing.T) {
	id, err := ParseProjectIdentity("nightly-ubuntu-20.04-mysql-8.0")
	require.NoError(t, err)
	assert.Equal(t, "ubuntu-20.04-mysql-8.0", id.Name())
}

func TestIdentityFromImages(t *testing.T) {
	id, err := IdentityFromImages(ImageRef{"almalinux", "8"}, ImageRef{"mariadb", "10.6"})
	require.NoError(t, err)
	assert.Equal(t, "almalinux-8-mariadb-10.6", id.Name())
}
