package dbsetup

import (
	"context"
	"fmt"

	"zonerun/internal/containerizer"
	"zonerun/internal/execute"
	"zonerun/internal/naming"
	"zonerun/pkg/logging"
)

const subsystem = "DatabaseSetup"

// Steps of SetupCatalog, as reported in DatabaseSetupError.
const (
	StepCreateDatabase  = "create_database"
	StepCreateUser      = "create_user"
	StepGrantPrivileges = "grant_privileges"
)

// CatalogParams describes the catalog to create.
type CatalogParams struct {
	Project  string          // Compose project name
	Database naming.ImageRef // Database image, its repository selects the strategy
	Instance int             // Database container instance, zero means 1
	Name     string          // Database name
	User     string          // Service account
	Password string          // Service account password
	Options  Options
}

// SetupCatalog creates the catalog database and its service account in the
// database container of the project.
func SetupCatalog(ctx context.Context, rt containerizer.ContainerRuntime, runner execute.Runner, registry *Registry, p CatalogParams) error {
	instance := p.Instance
	if instance == 0 {
		instance = 1
	}

	name := naming.ContainerName(p.Project, string(naming.ServiceDatabase), instance)
	c, err := rt.GetContainer(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to resolve database container: %w", err)
	}

	factory, err := registry.Lookup(p.Database.Repository)
	if err != nil {
		return err
	}
	strategy := factory(runner, c, p.Options)

	logging.Info(subsystem, "Setting up catalog database %s for user %s in %s", p.Name, p.User, c.Name)

	steps := []struct {
		name string
		run  func() (int, error)
	}{
		{StepCreateDatabase, func() (int, error) { return strategy.CreateDatabase(ctx, p.Name) }},
		{StepCreateUser, func() (int, error) { return strategy.CreateUser(ctx, p.User, p.Password) }},
		{StepGrantPrivileges, func() (int, error) { return strategy.GrantPrivileges(ctx, p.Name, p.User) }},
	}
	for _, step := range steps {
		code, err := step.run()
		if err != nil {
			return &DatabaseSetupError{Step: step.name, ExitCode: -1, Err: err}
		}
		if code != 0 {
			return &DatabaseSetupError{Step: step.name, ExitCode: code}
		}
		logging.Debug(subsystem, "Catalog setup step %s done", step.name)
	}

	if code, err := strategy.ListDatabases(ctx); err != nil || code != 0 {
		logging.Warn(subsystem, "Listing databases in %s failed (exit code %d): %v", c.Name, code, err)
	}
	return nil
}
