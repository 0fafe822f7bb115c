package containerizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// init sets up the test environment
func init() {
	// Replace the exec command context with our mock in tests
	execCommandContext = mockExecCommandContext
	lookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }
}

// mockExecCommandContext is our mock implementation
func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	if len(args) < 2 || args[0] != "docker" {
		fmt.Fprintf(os.Stderr, "Unknown command: %v\n", args)
		os.Exit(2)
	}
	args = args[1:]

	switch args[0] {
	case "info":
		os.Exit(0)

	case "compose":
		helperCompose(args[1:])

	case "inspect":
		// inspect -f <format> <name>
		if len(args) != 4 {
			os.Exit(2)
		}
		name := args[3]
		if name == "missing" {
			fmt.Fprintf(os.Stderr, "Error: No such object: %s\n", name)
			os.Exit(1)
		}
		switch args[2] {
		case "{{.Id}}":
			fmt.Println("id-" + name)
		case "{{.Config.Hostname}}":
			fmt.Println("host-" + name)
		}
		os.Exit(0)

	case "exec":
		helperExec(args[1:])

	case "cp":
		if len(args) != 3 {
			os.Exit(2)
		}
		if args[1] == "-" {
			data, _ := io.ReadAll(os.Stdin)
			if len(data) == 0 {
				fmt.Fprintln(os.Stderr, "empty archive")
				os.Exit(1)
			}
			os.Exit(0)
		}
		if strings.Contains(args[1], "missing") {
			fmt.Fprintf(os.Stderr, "Error: Could not find the file %s\n", args[1])
			os.Exit(1)
		}
		fmt.Print("archive-of-" + args[1])
		os.Exit(0)
	}

	fmt.Fprintf(os.Stderr, "Unknown docker subcommand: %v\n", args)
	os.Exit(1)
}

func helperCompose(args []string) {
	var project string
	for i, arg := range args {
		if arg == "-p" && i+1 < len(args) {
			project = args[i+1]
		}
	}
	for _, arg := range args {
		switch arg {
		case "up":
			if project == "broken" {
				fmt.Fprintln(os.Stderr, "service catalog failed to build")
				os.Exit(1)
			}
			fmt.Println(strings.Join(args, " "))
			os.Exit(0)
		case "down":
			os.Exit(0)
		case "ps":
			fmt.Printf("b2\t%s_irods-catalog-provider_1\n", project)
			fmt.Printf("a1\t%s_catalog_1\n", project)
			fmt.Println()
			os.Exit(0)
		}
	}
	os.Exit(2)
}

func helperExec(args []string) {
	var command string
	for i, arg := range args {
		if arg == "-c" && i+1 < len(args) {
			command = args[i+1]
		}
	}
	switch {
	case command == "args":
		fmt.Print(strings.Join(args, " "))
		os.Exit(0)
	case strings.HasPrefix(command, "exit "):
		code, _ := strconv.Atoi(strings.TrimPrefix(command, "exit "))
		fmt.Fprintln(os.Stderr, "exiting")
		os.Exit(code)
	case strings.HasPrefix(command, "echo "):
		fmt.Println(strings.TrimPrefix(command, "echo "))
		os.Exit(0)
	case command == "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(127)
}

func TestNewDockerRuntime(t *testing.T) {
	runtime, err := NewDockerRuntime()
	require.NoError(t, err)
	assert.NotNil(t, runtime)
}

func TestNewDockerRuntime_NoDocker(t *testing.T) {
	oldLookPath := lookPath
	defer func() { lookPath = oldLookPath }()
	lookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	_, err := NewDockerRuntime()
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestComposeArgs(t *testing.T) {
	args := composeArgs(Project{Name: "proj", Directory: "/src/proj", Files: []string{"a.yml", "b.yml"}})
	assert.Equal(t, []string{
		"compose", "--compatibility",
		"--project-directory", "/src/proj",
		"-f", "a.yml", "-f", "b.yml",
		"-p", "proj",
	}, args)
}

func TestScaleArgs_SortedByService(t *testing.T) {
	args := scaleArgs(map[string]int{"irods-catalog-consumer": 3, "catalog": 1})
	assert.Equal(t, []string{"--scale", "catalog=1", "--scale", "irods-catalog-consumer=3"}, args)
	assert.Empty(t, scaleArgs(nil))
}

func TestDockerRuntime_BringUp(t *testing.T) {
	d := &DockerRuntime{}

	containers, err := d.BringUp(context.Background(), Project{Name: "proj"}, map[string]int{"irods-catalog-consumer": 2})
	require.NoError(t, err)
	assert.Equal(t, []Container{
		{Name: "proj_catalog_1", ID: "a1"},
		{Name: "proj_irods-catalog-provider_1", ID: "b2"},
	}, containers)
}

func TestDockerRuntime_BringUpFailure(t *testing.T) {
	d := &DockerRuntime{}

	_, err := d.BringUp(context.Background(), Project{Name: "broken"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service catalog failed to build")
}

func TestDockerRuntime_TearDown(t *testing.T) {
	d := &DockerRuntime{}
	assert.NoError(t, d.TearDown(context.Background(), Project{Name: "proj"}, true))
}

func TestDockerRuntime_GetContainer(t *testing.T) {
	d := &DockerRuntime{}

	c, err := d.GetContainer(context.Background(), "proj_catalog_1")
	require.NoError(t, err)
	assert.Equal(t, Container{Name: "proj_catalog_1", ID: "id-proj_catalog_1"}, c)

	_, err = d.GetContainer(context.Background(), "missing")
	var notFound *ContainerNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.Name)
	assert.Contains(t, err.Error(), "No such object")
}

func TestDockerRuntime_Exec(t *testing.T) {
	d := &DockerRuntime{}
	c := Container{Name: "proj_irods-catalog-provider_1"}

	tests := []struct {
		name         string
		command      string
		opts         ExecOptions
		expectedOut  string
		expectedCode int
	}{
		{
			name:         "success",
			command:      "echo hello",
			expectedOut:  "hello\n",
			expectedCode: 0,
		},
		{
			name:         "nonzero exit with stderr",
			command:      "exit 3",
			expectedOut:  "exiting\n",
			expectedCode: 3,
		},
		{
			name:         "user and workdir are passed",
			command:      "args",
			opts:         ExecOptions{User: "irods", WorkDir: "/var/lib/irods"},
			expectedOut:  "-u irods -w /var/lib/irods proj_irods-catalog-provider_1 sh -c args",
			expectedCode: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := d.Exec(context.Background(), c, tt.command, tt.opts)
			require.NoError(t, err)

			out, err := io.ReadAll(p.Output())
			require.NoError(t, err)

			code, err := p.Wait()
			require.NoError(t, err)
			assert.Equal(t, tt.expectedOut, string(out))
			assert.Equal(t, tt.expectedCode, code)
		})
	}
}

func TestDockerRuntime_ExecInterrupted(t *testing.T) {
	d := &DockerRuntime{}
	c := Container{Name: "proj_irods-catalog-provider_1"}

	ctx, cancel := context.WithCancel(context.Background())
	p, err := d.Exec(ctx, c, "sleep", ExecOptions{})
	require.NoError(t, err)

	time.AfterFunc(100*time.Millisecond, cancel)
	_, _ = io.ReadAll(p.Output())

	code, err := p.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, -1, code)
}

func TestDockerRuntime_PutArchive(t *testing.T) {
	d := &DockerRuntime{}
	c := Container{Name: "proj_irods-catalog-provider_1"}

	assert.NoError(t, d.PutArchive(context.Background(), c, "/", strings.NewReader("tar bytes")))
	assert.Error(t, d.PutArchive(context.Background(), c, "/", strings.NewReader("")))
}

func TestDockerRuntime_GetArchive(t *testing.T) {
	d := &DockerRuntime{}
	c := Container{Name: "proj_irods-catalog-provider_1"}

	rc, err := d.GetArchive(context.Background(), c, "/var/lib/irods/log")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "archive-of-proj_irods-catalog-provider_1:/var/lib/irods/log", string(data))

	rc, err = d.GetArchive(context.Background(), Container{Name: "missing"}, "/var/lib/irods/log")
	require.NoError(t, err)
	_, err = io.ReadAll(rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not find the file")
	assert.Error(t, rc.Close())
}

func TestDockerRuntime_Hostname(t *testing.T) {
	d := &DockerRuntime{}

	host, err := d.Hostname(context.Background(), Container{Name: "proj_catalog_1"})
	require.NoError(t, err)
	assert.Equal(t, "host-proj_catalog_1", host)

	_, err = d.Hostname(context.Background(), Container{Name: "missing"})
	assert.Error(t, err)
}

func TestParseContainerList(t *testing.T) {
	containers := parseContainerList([]byte("z9\t/proj_b_1\n\nproj_a_1\n"))
	assert.Equal(t, []Container{
		{Name: "proj_a_1", ID: "proj_a_1"},
		{Name: "proj_b_1", ID: "z9"},
	}, containers)
}

func TestNewContainerRuntime(t *testing.T) {
	rt, err := NewContainerRuntime("")
	require.NoError(t, err)
	assert.IsType(t, &DockerRuntime{}, rt)

	rt, err = NewContainerRuntime("Docker")
	require.NoError(t, err)
	assert.IsType(t, &DockerRuntime{}, rt)

	_, err = NewContainerRuntime("podman")
	assert.Error(t, err)
}
