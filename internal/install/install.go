package install

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"

	"zonerun/internal/archive"
	"zonerun/internal/containerizer"
	"zonerun/internal/execute"
	"zonerun/internal/naming"
	"zonerun/internal/taskgroup"
	"zonerun/pkg/logging"
)

const subsystem = "Install"

// Steps reported in PackageInstallError.
const (
	StepPutArchive = "put_archive"
	StepUpdate     = "update"
	StepInstall    = "install"
)

// Installer installs server packages into the containers of a topology.
type Installer struct {
	runtime containerizer.ContainerRuntime
	runner  execute.Runner
	fs      billy.Filesystem
	limit   int
}

// NewInstaller creates an installer. fs holds the package directory and the
// archive output; limit bounds concurrent containers, zero for no bound.
func NewInstaller(runtime containerizer.ContainerRuntime, runner execute.Runner, fs billy.Filesystem, limit int) *Installer {
	return &Installer{runtime: runtime, runner: runner, fs: fs, limit: limit}
}

// LocalParams selects package files from a directory.
type LocalParams struct {
	Platform       string     // OS image repository
	DatabaseEngine string     // Database image repository
	PackageDir     string     // Directory holding the package files
	ArchivePath    string     // Where the bundle of resolved files is written
	Resolution     Resolution // Empty means ResolveFirst
}

// InstallLocal installs package files from a local directory into every
// server container. Packages are resolved and bundled before any container
// is contacted. The returned results hold one entry per server container.
func (i *Installer) InstallLocal(ctx context.Context, p LocalParams, containers []containerizer.Container) (*taskgroup.Results, error) {
	platform, err := LookupPlatform(p.Platform)
	if err != nil {
		return nil, err
	}

	mode := p.Resolution
	if mode == "" {
		mode = ResolveFirst
	}
	packages, err := ResolvePackages(i.fs, p.PackageDir, platform, RequiredPackages(p.DatabaseEngine), mode)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(packages))
	for _, pkg := range packages {
		files = append(files, pkg.Path)
	}
	logging.Info(subsystem, "Packages to install: %s", strings.Join(files, ", "))

	base, err := archive.BundleFile(i.fs, p.ArchivePath, files)
	if err != nil {
		return nil, fmt.Errorf("failed to bundle packages: %w", err)
	}
	logging.Debug(subsystem, "Bundled packages into %s", p.ArchivePath)

	res := i.fanOut("install-local", containers, func(c containerizer.Container) error {
		if err := i.putArchive(ctx, c, p.ArchivePath); err != nil {
			return err
		}

		var args []string
		for _, pkg := range applicable(packages, c) {
			args = append(args, path.Join("/", base, path.Base(pkg.Path)))
		}
		return i.install(ctx, c, platform, platform.InstallLocal, args)
	})
	return res, res.Err()
}

// OfficialParams selects packages from the platform repositories.
type OfficialParams struct {
	Platform       string
	DatabaseEngine string
	Version        string // Pinned version, empty for the latest
}

// InstallOfficial installs released packages from the platform repositories
// into every server container.
func (i *Installer) InstallOfficial(ctx context.Context, p OfficialParams, containers []containerizer.Container) (*taskgroup.Results, error) {
	platform, err := LookupPlatform(p.Platform)
	if err != nil {
		return nil, err
	}

	var packages []ResolvedPackage
	for _, pkg := range RequiredPackages(p.DatabaseEngine) {
		pin := pkg.Name
		if p.Version != "" {
			pin = pkg.Name + "=" + p.Version
		}
		packages = append(packages, ResolvedPackage{Package: pkg, Path: pin})
	}

	res := i.fanOut("install-official", containers, func(c containerizer.Container) error {
		var args []string
		for _, pkg := range applicable(packages, c) {
			args = append(args, pkg.Path)
		}
		return i.install(ctx, c, platform, platform.InstallOfficial, args)
	})
	return res, res.Err()
}

// fanOut runs task once per server container. Database containers are left
// out.
func (i *Installer) fanOut(name string, containers []containerizer.Container, task func(containerizer.Container) error) *taskgroup.Results {
	g := taskgroup.New(name, i.limit)
	for _, c := range containers {
		if naming.IsServiceContainer(c.Name, naming.ServiceDatabase) {
			continue
		}
		c := c
		g.Go(c.Name, func() error {
			err := task(c)
			if err != nil {
				logging.Error(subsystem, err, "Failed to install packages on %s", c.Name)
				return err
			}
			logging.Info(subsystem, "Packages installed on %s", c.Name)
			return nil
		})
	}
	return g.Wait()
}

func (i *Installer) putArchive(ctx context.Context, c containerizer.Container, archivePath string) error {
	f, err := i.fs.Open(archivePath)
	if err != nil {
		return &PackageInstallError{Container: c.Name, Step: StepPutArchive, ExitCode: -1, Err: err}
	}
	defer f.Close()

	logging.Debug(subsystem, "Putting %s into %s", archivePath, c.Name)
	if err := i.runtime.PutArchive(ctx, c, "/", f); err != nil {
		return &PackageInstallError{Container: c.Name, Step: StepPutArchive, ExitCode: -1, Err: err}
	}
	return nil
}

func (i *Installer) install(ctx context.Context, c containerizer.Container, platform Platform, installCmd string, args []string) error {
	if platform.Update != "" {
		if err := i.step(ctx, c, StepUpdate, platform.Update); err != nil {
			return err
		}
	}
	return i.step(ctx, c, StepInstall, installCmd+" "+strings.Join(args, " "))
}

func (i *Installer) step(ctx context.Context, c containerizer.Container, step, command string) error {
	code, err := i.runner.Execute(ctx, c, command, execute.Options{})
	if err != nil {
		return &PackageInstallError{Container: c.Name, Step: step, ExitCode: -1, Err: err}
	}
	if code != 0 {
		return &PackageInstallError{Container: c.Name, Step: step, ExitCode: code}
	}
	return nil
}

// applicable drops provider-only packages unless c is the provider.
func applicable(packages []ResolvedPackage, c containerizer.Container) []ResolvedPackage {
	provider := naming.IsServiceContainer(c.Name, naming.ServiceProvider)
	out := make([]ResolvedPackage, 0, len(packages))
	for _, pkg := range packages {
		if pkg.ProviderOnly && !provider {
			continue
		}
		out = append(out, pkg)
	}
	return out
}
