package archive

import (
	"bytes"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseName(t *testing.T) {
	assert.Equal(t, "job_packages", BaseName("/out/job/job_packages.tar"))
	assert.Equal(t, "plain", BaseName("plain"))
}

func TestBundleFile(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/pkgs/irods-runtime_4.3.1.deb", []byte("runtime"), 0o644))
	require.NoError(t, util.WriteFile(fs, "/pkgs/irods-server_4.3.1.deb", []byte("server"), 0o644))

	base, err := BundleFile(fs, "/out/job_packages.tar", []string{"/pkgs/irods-runtime_4.3.1.deb", "/pkgs/irods-server_4.3.1.deb"})
	require.NoError(t, err)
	assert.Equal(t, "job_packages", base)

	data, err := util.ReadFile(fs, "/out/job_packages.tar")
	require.NoError(t, err)
	entries, err := Entries(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "job_packages/irods-runtime_4.3.1.deb", Content: []byte("runtime")},
		{Name: "job_packages/irods-server_4.3.1.deb", Content: []byte("server")},
	}, entries)
}

func TestBundle_MissingFile(t *testing.T) {
	fs := memfs.New()
	var buf bytes.Buffer
	err := Bundle(&buf, fs, "base", []string{"/nope.deb"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nope.deb")
}

func TestDocument(t *testing.T) {
	data, err := Document("/irods_setup.input", []byte("irods\nirods\n"), 0o644)
	require.NoError(t, err)

	entries, err := Entries(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "irods_setup.input", entries[0].Name)
	assert.Equal(t, "irods\nirods\n", string(entries[0].Content))
}
