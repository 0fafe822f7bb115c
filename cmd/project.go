package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"zonerun/internal/containerizer"
	"zonerun/internal/dbsetup"
	"zonerun/internal/job"
	"zonerun/internal/naming"
	"zonerun/internal/orchestrator"
	"zonerun/pkg/logging"
)

// projectFlags select a compose project and the images it is built from.
type projectFlags struct {
	directory string
	name      string
	platform  string
	database  string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.directory, "project-directory", ".", "Path to the docker compose project")
	cmd.Flags().StringVar(&f.name, "project-name", "", "Name of the docker compose project (default is the directory name)")
	cmd.Flags().StringVarP(&f.platform, "os-platform-tag", "p", "", "OS platform image, e.g. ubuntu:22.04 (default derived from the project name)")
	cmd.Flags().StringVarP(&f.database, "database-tag", "d", "", fmt.Sprintf("Database image, e.g. postgres:14, one of %s (default derived from the project name)", strings.Join(dbsetup.DefaultRegistry().Engines(), ", ")))
}

// resolvedProject is a project ready for the runtime.
type resolvedProject struct {
	project  containerizer.Project
	identity naming.ProjectIdentity
}

func (rp resolvedProject) platform() naming.ImageRef { return rp.identity.PlatformImage() }

func (rp resolvedProject) database() naming.ImageRef { return rp.identity.DatabaseImage() }

// resolve names the project and derives missing image tags from the
// project name, which ends in <os>-<os version>-<database>-<database version>.
func (f *projectFlags) resolve() (resolvedProject, error) {
	dir, err := filepath.Abs(f.directory)
	if err != nil {
		return resolvedProject{}, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	name := f.name
	if name == "" {
		name = filepath.Base(dir)
	}

	platform, err := imageFromFlagOrName(f.platform, name, naming.PlatformImageRef)
	if err != nil {
		return resolvedProject{}, err
	}
	database, err := imageFromFlagOrName(f.database, name, naming.DatabaseImageRef)
	if err != nil {
		return resolvedProject{}, err
	}

	identity, err := naming.IdentityFromImages(platform, database)
	if err != nil {
		return resolvedProject{}, &UsageError{Err: err}
	}

	logging.Debug("CLI", "Project %s in %s: %s", name, dir, identity)
	return resolvedProject{
		project: containerizer.Project{
			Name:      naming.ComposeProjectName(name),
			Directory: dir,
		},
		identity: identity,
	}, nil
}

func imageFromFlagOrName(flag, projectName string, derive func(string, string) (naming.ImageRef, error)) (naming.ImageRef, error) {
	if flag != "" {
		return naming.ParseImageRef(flag)
	}
	return derive(projectName, naming.DefaultProjectDelimiter)
}

// parseTarget reads "SERVICE INSTANCE", "SERVICE:INSTANCE" or "SERVICE".
func parseTarget(s string) (job.Target, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ':' })
	if len(fields) < 1 || len(fields) > 2 {
		return job.Target{}, usageErrorf("invalid target %q, expected SERVICE INSTANCE", s)
	}
	service, err := knownService(fields[0])
	if err != nil {
		return job.Target{}, err
	}
	instance := 1
	if len(fields) == 2 {
		instance, err = strconv.Atoi(fields[1])
		if err != nil || instance < 1 {
			return job.Target{}, usageErrorf("invalid service instance %q", fields[1])
		}
	}
	return job.Target{Service: service, Instance: instance}, nil
}

func knownService(name string) (naming.Service, error) {
	var known []string
	for _, s := range naming.Services() {
		if string(s) == name {
			return s, nil
		}
		known = append(known, string(s))
	}
	return "", usageErrorf("unknown service %q, expected one of %s", name, strings.Join(known, ", "))
}

// commandPolicy returns the policy given by flag, or the configured one.
func commandPolicy(flag string) (orchestrator.CommandPolicy, error) {
	policy := orchestrator.CommandPolicy(cfg.Run.CommandPolicy)
	if flag != "" {
		policy = orchestrator.CommandPolicy(flag)
	}
	if policy != orchestrator.PolicyContinue && policy != orchestrator.PolicyAbort {
		return "", usageErrorf("invalid command policy %q", policy)
	}
	return policy, nil
}
