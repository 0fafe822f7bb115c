package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonerun/internal/job"
	"zonerun/internal/naming"
)

func TestProjectFlagsResolve_DerivesImages(t *testing.T) {
	f := projectFlags{directory: "/projects/ubuntu-22.04-postgres-14"}

	rp, err := f.resolve()
	require.NoError(t, err)

	assert.Equal(t, "ubuntu-2204-postgres-14", rp.project.Name)
	assert.Equal(t, filepath.Clean("/projects/ubuntu-22.04-postgres-14"), rp.project.Directory)
	assert.Equal(t, naming.ImageRef{Repository: "ubuntu", Tag: "22.04"}, rp.platform())
	assert.Equal(t, naming.ImageRef{Repository: "postgres", Tag: "14"}, rp.database())
}

func TestProjectFlagsResolve_FlagsWin(t *testing.T) {
	f := projectFlags{
		directory: ".",
		name:      "my-custom-project",
		platform:  "almalinux:8",
		database:  "mysql:8.0",
	}

	rp, err := f.resolve()
	require.NoError(t, err)

	assert.Equal(t, "my-custom-project", rp.project.Name)
	assert.Equal(t, naming.ImageRef{Repository: "almalinux", Tag: "8"}, rp.platform())
	assert.Equal(t, naming.ImageRef{Repository: "mysql", Tag: "8.0"}, rp.database())
}

func TestProjectFlagsResolve_Malformed(t *testing.T) {
	_, err := (&projectFlags{directory: ".", name: "short", platform: "ubuntu:22.04"}).resolve()
	var nameErr *naming.MalformedProjectNameError
	assert.ErrorAs(t, err, &nameErr)

	_, err = (&projectFlags{directory: ".", platform: "ubuntu", database: "postgres:14"}).resolve()
	var refErr *naming.MalformedImageRefError
	assert.ErrorAs(t, err, &refErr)
}

func TestProjectFlagsResolve_DelimiterInsideField(t *testing.T) {
	_, err := (&projectFlags{directory: "/projects/ubuntu-22.04-postgres-14", platform: "ubuntu:22-04"}).resolve()
	require.Error(t, err)
	var nameErr *naming.MalformedProjectNameError
	assert.ErrorAs(t, err, &nameErr)
	assert.Equal(t, ExitCodeUsage, getExitCode(err))
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    job.Target
		wantErr bool
	}{
		{in: "irods-catalog-provider 1", want: job.Target{Service: naming.ServiceProvider, Instance: 1}},
		{in: "irods-catalog-consumer:3", want: job.Target{Service: naming.ServiceConsumer, Instance: 3}},
		{in: "irods-catalog-consumer", want: job.Target{Service: naming.ServiceConsumer, Instance: 1}},
		{in: "irods-catalog-consumer zero", wantErr: true},
		{in: "irods-catalog-consumer 0", wantErr: true},
		{in: "a b c", wantErr: true},
		{in: "irods-catalog-replica 1", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTarget(tt.in)
			if tt.wantErr {
				assert.Equal(t, ExitCodeUsage, getExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
