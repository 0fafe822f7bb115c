package irodssetup

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonerun/internal/archive"
	"zonerun/internal/containerizer"
	"zonerun/internal/containerizer/containerizertest"
	"zonerun/internal/execute"
)

const project = "ubuntu-2204-postgres-14"

var (
	catalog  = project + "_catalog_1"
	provider = project + "_irods-catalog-provider_1"
)

func consumerName(i int) string {
	return project + "_irods-catalog-consumer_" + string(rune('0'+i))
}

func newSetup(rt *containerizertest.Runtime) *Setup {
	return NewSetup(rt, execute.NewExecutor(rt), 0)
}

func TestSetupProvider(t *testing.T) {
	rt := &containerizertest.Runtime{Containers: containerizertest.Topology(project, 1)}

	require.NoError(t, newSetup(rt).SetupProvider(context.Background(), project, DefaultConfig()))

	calls := rt.Execs()
	require.Len(t, calls, 2)
	assert.Equal(t, containerizertest.ExecCall{
		Container: provider,
		Command:   "python3 /var/lib/irods/scripts/setup_irods.py < /irods_setup.input",
	}, calls[0])
	assert.Equal(t, containerizertest.ExecCall{
		Container: provider,
		Command:   "/var/lib/irods/irodsctl restart",
		User:      "irods",
	}, calls[1])

	data, ok := rt.Archive(provider, "/")
	require.True(t, ok)
	entries, err := archive.Entries(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "irods_setup.input", entries[0].Name)
	// the database hostname is resolved from the catalog container
	assert.Contains(t, string(entries[0].Content), "\nhost-"+catalog+"\n5432\n")
}

func TestSetupServer_FailsFast(t *testing.T) {
	rt := &containerizertest.Runtime{
		Containers: containerizertest.Topology(project, 0),
		ExecFunc: func(_ containerizer.Container, command string) containerizertest.ExecResult {
			return containerizertest.ExecResult{ExitCode: 1}
		},
	}

	err := newSetup(rt).SetupProvider(context.Background(), project, DefaultConfig())

	var scriptErr *SetupScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, SetupScriptError{Container: provider, Step: StepRunScript, ExitCode: 1}, *scriptErr)
	assert.Len(t, rt.Execs(), 1, "restart must not run after a failed setup script")
}

func TestSetupServer_PutFailure(t *testing.T) {
	rt := &containerizertest.Runtime{
		Containers:    containerizertest.Topology(project, 0),
		PutArchiveErr: map[string]error{provider: errors.New("no space")},
	}

	err := newSetup(rt).SetupProvider(context.Background(), project, DefaultConfig())

	var scriptErr *SetupScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, StepPutInput, scriptErr.Step)
	assert.Empty(t, rt.Execs())
}

func TestSetupProvider_MissingContainer(t *testing.T) {
	rt := &containerizertest.Runtime{}

	err := newSetup(rt).SetupProvider(context.Background(), project, DefaultConfig())

	var notFound *containerizer.ContainerNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, provider, notFound.Name)
}

func TestSetupConsumers_IsolatesFailures(t *testing.T) {
	failing := consumerName(3)
	rt := &containerizertest.Runtime{
		Containers: containerizertest.Topology(project, 5),
		ExecFunc: func(c containerizer.Container, command string) containerizertest.ExecResult {
			if c.Name == failing {
				return containerizertest.ExecResult{ExitCode: 1}
			}
			return containerizertest.ExecResult{}
		},
	}

	res, err := newSetup(rt).SetupConsumers(context.Background(), project, 5, DefaultConfig())
	require.Error(t, err)
	require.NotNil(t, res)

	assert.Equal(t, []string{failing}, res.Failed())
	assert.Equal(t, []string{consumerName(1), consumerName(2), consumerName(4), consumerName(5)}, res.Succeeded())

	taskErr, ok := res.Get(failing)
	require.True(t, ok)
	var scriptErr *SetupScriptError
	require.True(t, errors.As(taskErr, &scriptErr))
	assert.Equal(t, failing, scriptErr.Container)

	// every consumer got the provider's hostname
	data, ok := rt.Archive(consumerName(5), "/")
	require.True(t, ok)
	entries, err := archive.Entries(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Contains(t, string(entries[0].Content), "\n2\ntempZone\nhost-"+provider+"\n")
}

func TestConfigureForTesting(t *testing.T) {
	rt := &containerizertest.Runtime{Containers: containerizertest.Topology(project, 1)}

	require.NoError(t, newSetup(rt).ConfigureForTesting(context.Background(), rt.Containers, "irods"))

	assert.Empty(t, rt.ExecsOn(catalog))
	want := []string{
		"chown irods:irods /var/lib/irods/msiExecCmd_bin",
		"cp /var/lib/irods/msiExecCmd_bin/univMSSInterface.sh.template /var/lib/irods/msiExecCmd_bin/univMSSInterface.sh",
		`sed -i "s/template-//g" /var/lib/irods/msiExecCmd_bin/univMSSInterface.sh`,
		"chmod 544 /var/lib/irods/msiExecCmd_bin/univMSSInterface.sh",
	}
	assert.Equal(t, want, rt.ExecsOn(provider))
	assert.Equal(t, want, rt.ExecsOn(consumerName(1)))

	calls := rt.Execs()
	assert.Equal(t, "", calls[0].User)
	assert.Equal(t, "irods", calls[1].User)
	assert.Equal(t, "/var/lib/irods", calls[1].WorkDir)
}

func TestConfigureForTesting_StopsOnFailure(t *testing.T) {
	rt := &containerizertest.Runtime{
		Containers: containerizertest.Topology(project, 1),
		ExecFunc: func(_ containerizer.Container, command string) containerizertest.ExecResult {
			if command == "chmod 544 /var/lib/irods/msiExecCmd_bin/univMSSInterface.sh" {
				return containerizertest.ExecResult{ExitCode: 1}
			}
			return containerizertest.ExecResult{}
		},
	}

	err := newSetup(rt).ConfigureForTesting(context.Background(), rt.Containers, "irods")

	var scriptErr *SetupScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, StepChmod, scriptErr.Step)
}
