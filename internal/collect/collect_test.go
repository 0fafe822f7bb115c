package collect

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonerun/internal/containerizer"
	"zonerun/internal/containerizer/containerizertest"
)

const project = "ubuntu-2204-postgres-14"

func TestCollectLogs_ToleratesFailures(t *testing.T) {
	containers := []containerizer.Container{
		{Name: project + "_irods-catalog-provider_1"},
		{Name: project + "_irods-catalog-consumer_1"},
		{Name: project + "_irods-catalog-consumer_2"},
	}
	var (
		mu      sync.Mutex
		fetched []string
	)
	rt := &containerizertest.Runtime{
		GetArchiveFunc: func(c containerizer.Container, src string) (io.ReadCloser, error) {
			mu.Lock()
			fetched = append(fetched, src)
			mu.Unlock()
			if c.Name == containers[1].Name {
				return nil, errors.New("container vanished")
			}
			return io.NopCloser(strings.NewReader("tar-of-" + c.Name)), nil
		},
	}
	fs := memfs.New()

	res, err := NewCollector(rt, fs, "").CollectLogs(context.Background(), containers, "/out/job/logs")
	require.NoError(t, err)

	assert.Equal(t, []string{containers[1].Name}, res.Failed())
	for _, i := range []int{0, 2} {
		data, err := util.ReadFile(fs, "/out/job/logs/"+containers[i].Name)
		require.NoError(t, err)
		assert.Equal(t, "tar-of-"+containers[i].Name, string(data))
	}
	_, err = fs.Stat("/out/job/logs/" + containers[1].Name)
	assert.Error(t, err)
	assert.Equal(t, []string{DefaultLogPath, DefaultLogPath, DefaultLogPath}, fetched)
}

func TestCollectLogs_SkipsDatabase(t *testing.T) {
	rt := &containerizertest.Runtime{}
	fs := memfs.New()

	res, err := NewCollector(rt, fs, "/custom/log").CollectLogs(context.Background(), containerizertest.Topology(project, 1), "/logs")
	require.NoError(t, err)
	assert.Equal(t, []string{project + "_irods-catalog-consumer_1", project + "_irods-catalog-provider_1"}, res.Succeeded())

	entries, err := fs.ReadDir("/logs")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCollectLogs_Idempotent(t *testing.T) {
	rt := &containerizertest.Runtime{}
	fs := memfs.New()
	c := NewCollector(rt, fs, "")
	containers := containerizertest.Topology(project, 0)

	_, err := c.CollectLogs(context.Background(), containers, "/logs")
	require.NoError(t, err)
	_, err = c.CollectLogs(context.Background(), containers, "/logs")
	require.NoError(t, err)

	data, err := util.ReadFile(fs, "/logs/"+project+"_irods-catalog-provider_1")
	require.NoError(t, err)
	assert.Equal(t, "logs-of-"+project+"_irods-catalog-provider_1", string(data))
}

func TestCollectLogs_ManyServersIntoNestedDirectory(t *testing.T) {
	rt := &containerizertest.Runtime{}
	fs := memfs.New()
	containers := containerizertest.Topology(project, 8)

	res, err := NewCollector(rt, fs, "").CollectLogs(context.Background(), containers, "/out/job/logs")
	require.NoError(t, err)
	assert.Empty(t, res.Failed())
	assert.Len(t, res.Succeeded(), 9)

	entries, err := fs.ReadDir("/out/job/logs")
	require.NoError(t, err)
	assert.Len(t, entries, 9)
}
