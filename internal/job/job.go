// Package job describes one test run: its unique name, what it runs and
// where its output goes.
package job

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"

	"zonerun/internal/naming"
)

const (
	scriptLogName = "script_output.log"
	logsDirName   = "logs"
)

// Name returns a unique job name for project, led by prefix if given.
func Name(project, prefix string) string {
	parts := []string{project, uuid.NewString()}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, naming.ContainerNameSeparator)
}

// Target is the service instance commands run on.
type Target struct {
	Service  naming.Service
	Instance int
}

// ContainerName returns the target's container in project.
func (t Target) ContainerName(project string) string {
	return naming.ContainerName(project, string(t.Service), t.Instance)
}

func (t Target) String() string {
	return fmt.Sprintf("%s %d", t.Service, t.Instance)
}

// DefaultTarget is the catalog service provider.
var DefaultTarget = Target{Service: naming.ServiceProvider, Instance: 1}

// Params are the inputs of New.
type Params struct {
	Project        string        // Compose project name
	Prefix         string        // Optional job name prefix
	OutputRoot     string        // Parent of the job directory, empty for a temporary directory
	SetupTimeout   time.Duration // How long to wait for server setup
	PackageDir     string        // Local package directory, optional
	PackageVersion string        // Official package version, optional
	Commands       []string      // Commands to run, in order
	Target         Target        // Zero value means DefaultTarget
}

// Context is one run. It is not modified after New.
type Context struct {
	name           string
	outputDir      string
	setupTimeout   time.Duration
	packageDir     string
	packageVersion string
	commands       []string
	target         Target
}

// New names the job and creates its output directory in fs.
func New(fs billy.Filesystem, p Params) (*Context, error) {
	if p.PackageDir != "" && p.PackageVersion != "" {
		return nil, fmt.Errorf("package directory and package version are mutually exclusive")
	}

	name := Name(p.Project, p.Prefix)

	root := p.OutputRoot
	if root == "" {
		tmp, err := util.TempDir(fs, "", p.Project)
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary output directory: %w", err)
		}
		root = tmp
	}

	outputDir := path.Join(root, name)
	if err := fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	target := p.Target
	if target == (Target{}) {
		target = DefaultTarget
	}

	return &Context{
		name:           name,
		outputDir:      outputDir,
		setupTimeout:   p.SetupTimeout,
		packageDir:     p.PackageDir,
		packageVersion: p.PackageVersion,
		commands:       append([]string(nil), p.Commands...),
		target:         target,
	}, nil
}

func (c *Context) Name() string                { return c.name }
func (c *Context) OutputDir() string           { return c.outputDir }
func (c *Context) SetupTimeout() time.Duration { return c.setupTimeout }
func (c *Context) PackageDir() string          { return c.packageDir }
func (c *Context) PackageVersion() string      { return c.packageVersion }
func (c *Context) Target() Target              { return c.target }

// Commands returns a copy of the commands to run.
func (c *Context) Commands() []string {
	return append([]string(nil), c.commands...)
}

// ScriptLog is the file the run's own log goes to.
func (c *Context) ScriptLog() string {
	return path.Join(c.outputDir, scriptLogName)
}

// LogsDir holds one log archive per server container.
func (c *Context) LogsDir() string {
	return path.Join(c.outputDir, logsDirName)
}

// PackagesArchive is where the bundle of local packages is kept.
func (c *Context) PackagesArchive() string {
	return path.Join(c.outputDir, c.name+"_packages.tar")
}
