package irodssetup

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"zonerun/internal/archive"
	"zonerun/internal/containerizer"
	"zonerun/internal/execute"
	"zonerun/internal/naming"
	"zonerun/internal/taskgroup"
	"zonerun/pkg/logging"
)

const subsystem = "IrodsSetup"

// Fixed locations inside server containers.
const (
	IrodsHome      = "/var/lib/irods"
	SetupInputPath = "/irods_setup.input"
	setupScript    = "/var/lib/irods/scripts/setup_irods.py"
	controlScript  = "/var/lib/irods/irodsctl"
)

// Steps reported in SetupScriptError.
const (
	StepResolve    = "resolve"
	StepPutInput   = "put_input"
	StepRunScript  = "setup_script"
	StepRestart    = "restart"
	StepChown      = "chown_msiexec"
	StepCopyScript = "copy_univmss"
	StepEditScript = "edit_univmss"
	StepChmod      = "chmod_univmss"
)

// Setup runs the setup script on the servers of a project.
type Setup struct {
	runtime containerizer.ContainerRuntime
	runner  execute.Runner
	limit   int
}

// NewSetup creates a Setup. limit bounds concurrent consumer setups, zero
// for no bound.
func NewSetup(runtime containerizer.ContainerRuntime, runner execute.Runner, limit int) *Setup {
	return &Setup{runtime: runtime, runner: runner, limit: limit}
}

// SetupServer writes the answers into the container, runs the setup script
// with them on standard input and restarts the server as the service
// account.
func (s *Setup) SetupServer(ctx context.Context, c containerizer.Container, in Input, serviceAccount string) error {
	doc, err := archive.Document(path.Base(SetupInputPath), []byte(in.String()), 0o644)
	if err != nil {
		return &SetupScriptError{Container: c.Name, Step: StepPutInput, ExitCode: -1, Err: err}
	}
	if err := s.runtime.PutArchive(ctx, c, path.Dir(SetupInputPath), bytes.NewReader(doc)); err != nil {
		return &SetupScriptError{Container: c.Name, Step: StepPutInput, ExitCode: -1, Err: err}
	}

	logging.Info(subsystem, "Running setup script on %s as %s", c.Name, in.Role)
	if err := s.step(ctx, c, StepRunScript, fmt.Sprintf("python3 %s < %s", setupScript, SetupInputPath), execute.Options{Stream: true}); err != nil {
		return err
	}
	return s.step(ctx, c, StepRestart, controlScript+" restart", execute.Options{User: serviceAccount})
}

func (s *Setup) step(ctx context.Context, c containerizer.Container, step, command string, opts execute.Options) error {
	code, err := s.runner.Execute(ctx, c, command, opts)
	if err != nil {
		return &SetupScriptError{Container: c.Name, Step: step, ExitCode: -1, Err: err}
	}
	if code != 0 {
		return &SetupScriptError{Container: c.Name, Step: step, ExitCode: code}
	}
	return nil
}

// SetupProvider sets up the catalog service provider of project. An empty
// database hostname in cfg is resolved from the catalog container.
func (s *Setup) SetupProvider(ctx context.Context, project string, cfg Config) error {
	c, err := s.resolve(ctx, project, naming.ServiceProvider, 1)
	if err != nil {
		return err
	}

	if cfg.DatabaseServerHostname == "" {
		db, err := s.resolve(ctx, project, naming.ServiceDatabase, 1)
		if err != nil {
			return err
		}
		host, err := s.runtime.Hostname(ctx, db)
		if err != nil {
			return &SetupScriptError{Container: c.Name, Step: StepResolve, ExitCode: -1, Err: err}
		}
		cfg.DatabaseServerHostname = host
	}

	in, err := Build(RoleProvider, cfg)
	if err != nil {
		return err
	}
	if err := s.SetupServer(ctx, c, in, cfg.ServiceAccountName); err != nil {
		return err
	}
	logging.Info(subsystem, "Catalog service provider %s is set up", c.Name)
	return nil
}

// SetupConsumers sets up consumer instances 1 to count concurrently. Each
// instance is reported under its container name; one failing instance does
// not stop the others.
func (s *Setup) SetupConsumers(ctx context.Context, project string, count int, cfg Config) (*taskgroup.Results, error) {
	if cfg.ProviderHostname == "" {
		provider, err := s.resolve(ctx, project, naming.ServiceProvider, 1)
		if err != nil {
			return nil, err
		}
		host, err := s.runtime.Hostname(ctx, provider)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve provider hostname: %w", err)
		}
		cfg.ProviderHostname = host
	}

	in, err := Build(RoleConsumer, cfg)
	if err != nil {
		return nil, err
	}

	g := taskgroup.New("consumer-setup", s.limit)
	for i := 1; i <= count; i++ {
		instance := i
		name := naming.ContainerName(project, string(naming.ServiceConsumer), instance)
		g.Go(name, func() error {
			c, err := s.resolve(ctx, project, naming.ServiceConsumer, instance)
			if err != nil {
				return err
			}
			if err := s.SetupServer(ctx, c, in, cfg.ServiceAccountName); err != nil {
				logging.Error(subsystem, err, "Setup failed on %s", name)
				return err
			}
			logging.Info(subsystem, "Catalog service consumer %s is set up", name)
			return nil
		})
	}

	res := g.Wait()
	return res, res.Err()
}

func (s *Setup) resolve(ctx context.Context, project string, service naming.Service, instance int) (containerizer.Container, error) {
	name := naming.ContainerName(project, string(service), instance)
	c, err := s.runtime.GetContainer(ctx, name)
	if err != nil {
		return containerizer.Container{}, &SetupScriptError{Container: name, Step: StepResolve, ExitCode: -1, Err: err}
	}
	return c, nil
}

// ConfigureForTesting prepares every server container for the iRODS test
// suite: the universal mass storage script is made from its template and
// made executable. Database containers are skipped.
func (s *Setup) ConfigureForTesting(ctx context.Context, containers []containerizer.Container, serviceAccount string) error {
	script := path.Join(IrodsHome, "msiExecCmd_bin", "univMSSInterface.sh")
	asService := execute.Options{User: serviceAccount, WorkDir: IrodsHome}

	steps := []struct {
		name    string
		command string
		opts    execute.Options
	}{
		{StepChown, fmt.Sprintf("chown %s:%s %s", serviceAccount, serviceAccount, path.Dir(script)), execute.Options{}},
		{StepCopyScript, fmt.Sprintf("cp %[1]s.template %[1]s", script), asService},
		{StepEditScript, fmt.Sprintf(`sed -i "s/template-//g" %s`, script), asService},
		{StepChmod, "chmod 544 " + script, asService},
	}

	for _, c := range containers {
		if naming.IsServiceContainer(c.Name, naming.ServiceDatabase) {
			continue
		}
		for _, st := range steps {
			if err := s.step(ctx, c, st.name, st.command, st.opts); err != nil {
				return err
			}
		}
		logging.Debug(subsystem, "Configured %s for testing", c.Name)
	}
	return nil
}
