package cmd

import (
	"bytes"
	"context"
	"path"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonerun/internal/containerizer"
	"zonerun/internal/containerizer/containerizertest"
	"zonerun/pkg/logging"
)

const testProject = "ubuntu-2204-postgres-14"

// withFakes swaps the runtime and filesystem for in-memory ones.
func withFakes(t *testing.T) (*containerizertest.Runtime, billy.Filesystem) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	text.DisableColors()

	rt := &containerizertest.Runtime{
		Containers: containerizertest.Topology(testProject, 3),
		ExecFunc: func(_ containerizer.Container, command string) containerizertest.ExecResult {
			if command == "false" {
				return containerizertest.ExecResult{ExitCode: 1}
			}
			return containerizertest.ExecResult{}
		},
	}
	fs := memfs.New()

	origRuntime, origFS := newRuntime, newFilesystem
	newRuntime = func(string) (containerizer.ContainerRuntime, error) { return rt, nil }
	newFilesystem = func() billy.Filesystem { return fs }
	t.Cleanup(func() {
		newRuntime, newFilesystem = origRuntime, origFS
		runPackageDir, runPackageVersion, runOutputDirectory = "", "", ""
		verbosity = 0
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	return rt, fs
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand_ExitCodeOfLastCommand(t *testing.T) {
	rt, fs := withFakes(t)

	out, err := executeRoot(t, "run", "-vvv",
		"--project-name", "ubuntu-22.04-postgres-14",
		"--output-directory", "/out",
		"--setup-timeout", "5s",
		"echo a", "false")
	require.Error(t, err)
	assert.Equal(t, 1, getExitCode(err))

	assert.Equal(t, 1, rt.TearDowns())
	assert.Equal(t, 3, rt.Scale()["irods-catalog-consumer"])
	assert.Contains(t, out, "TornDown")

	jobs, err := fs.ReadDir("/out")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	jobDir := path.Join("/out", jobs[0].Name())
	assert.Contains(t, jobs[0].Name(), testProject+"_")

	scriptLog, err := util.ReadFile(fs, path.Join(jobDir, "script_output.log"))
	require.NoError(t, err)
	assert.Contains(t, string(scriptLog), "Running [echo a]")

	_, err = fs.Stat(path.Join(jobDir, "logs", testProject+"_irods-catalog-provider_1"))
	assert.NoError(t, err)
}

func TestRunCommand_KilledCommandIsAFailure(t *testing.T) {
	rt, _ := withFakes(t)
	rt.ExecFunc = func(_ containerizer.Container, command string) containerizertest.ExecResult {
		if command == "killed" {
			return containerizertest.ExecResult{ExitCode: -1}
		}
		return containerizertest.ExecResult{}
	}

	_, err := executeRoot(t, "run",
		"--project-name", "ubuntu-22.04-postgres-14",
		"--output-directory", "/out",
		"echo a", "killed")
	require.Error(t, err)
	assert.Equal(t, ExitCodeOrchestrationFailure, getExitCode(err))
	assert.Equal(t, 1, rt.TearDowns())
}

func TestCommandExit(t *testing.T) {
	tests := []struct {
		name string
		code int
		ran  int
		want int
	}{
		{name: "success", code: 0, ran: 2, want: ExitCodeSuccess},
		{name: "no command ran", code: -1, ran: 0, want: ExitCodeSuccess},
		{name: "failing command", code: 3, ran: 1, want: 3},
		{name: "killed command", code: -1, ran: 1, want: ExitCodeOrchestrationFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(commandExit(tt.code, tt.ran)))
		})
	}
}

func TestRunCommand_PackageSourcesAreExclusive(t *testing.T) {
	rt, _ := withFakes(t)

	_, err := executeRoot(t, "run",
		"--project-name", "ubuntu-22.04-postgres-14",
		"--package-directory", "/pkgs",
		"--package-version", "4.3.1",
		"echo a")
	require.Error(t, err)
	assert.Equal(t, ExitCodeUsage, getExitCode(err))
	assert.Equal(t, 0, rt.BringUps())
}

func TestRunCommand_RequiresCommands(t *testing.T) {
	withFakes(t)

	_, err := executeRoot(t, "run", "--project-name", "ubuntu-22.04-postgres-14")
	require.Error(t, err)
	assert.Equal(t, ExitCodeUsage, getExitCode(err))
}

func TestExecCommand_All(t *testing.T) {
	rt, _ := withFakes(t)

	_, err := executeRoot(t, "exec", "--project-name", "ubuntu-22.04-postgres-14", "--all", "echo a")
	require.NoError(t, err)

	assert.Empty(t, rt.ExecsOn(testProject+"_catalog_1"))
	assert.Equal(t, []string{"echo a"}, rt.ExecsOn(testProject+"_irods-catalog-consumer_2"))
	for _, call := range rt.Execs() {
		assert.Equal(t, "irods", call.User)
		assert.Equal(t, "/var/lib/irods", call.WorkDir)
	}
}

func TestLogsCommand(t *testing.T) {
	_, fs := withFakes(t)

	out, err := executeRoot(t, "logs", "--project-name", "ubuntu-22.04-postgres-14", "-o", "/collected")
	require.NoError(t, err)
	assert.Contains(t, out, testProject+"_irods-catalog-consumer_3")

	data, err := util.ReadFile(fs, path.Join("/collected", testProject+"_irods-catalog-provider_1"))
	require.NoError(t, err)
	assert.Equal(t, "logs-of-"+testProject+"_irods-catalog-provider_1", string(data))
}

func TestLogsCommand_FailureIsLoggedAsCritical(t *testing.T) {
	rt, _ := withFakes(t)
	rt.Containers = nil

	var critical []logging.LogEntry
	logging.SetEntryHook(func(e logging.LogEntry) {
		if e.Level == logging.LevelCritical {
			critical = append(critical, e)
		}
	})
	t.Cleanup(func() { logging.SetEntryHook(nil) })

	_, err := executeRoot(t, "logs", "--project-name", "ubuntu-22.04-postgres-14", "-o", "/collected")
	require.Error(t, err)
	assert.Equal(t, ExitCodeOrchestrationFailure, getExitCode(err))
	require.Len(t, critical, 1)
	assert.Equal(t, "CLI", critical[0].Subsystem)
	assert.ErrorIs(t, critical[0].Err, err)
}

func TestExecCommand_UsageErrorIsNotCritical(t *testing.T) {
	withFakes(t)
	t.Cleanup(func() { execTarget = "irods-catalog-provider 1" })

	var critical int
	logging.SetEntryHook(func(e logging.LogEntry) {
		if e.Level == logging.LevelCritical {
			critical++
		}
	})
	t.Cleanup(func() { logging.SetEntryHook(nil) })

	_, err := executeRoot(t, "exec", "--project-name", "ubuntu-22.04-postgres-14", "-t", "nope 1", "echo a")
	require.Error(t, err)
	assert.Equal(t, ExitCodeUsage, getExitCode(err))
	assert.Zero(t, critical)
}
