// Package collect saves the server logs of a topology.
package collect

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/go-git/go-billy/v5"

	"zonerun/internal/containerizer"
	"zonerun/internal/naming"
	"zonerun/internal/taskgroup"
	"zonerun/pkg/logging"
)

const subsystem = "LogCollector"

// DefaultLogPath is where servers keep their logs.
const DefaultLogPath = "/var/lib/irods/log"

// Collector fetches log archives from containers into a directory.
type Collector struct {
	runtime containerizer.ContainerRuntime
	logPath string

	// fsMu serializes writes to fs, which need not be safe for concurrent use.
	fsMu sync.Mutex
	fs   billy.Filesystem
}

// NewCollector creates a collector writing to fs. An empty logPath means
// DefaultLogPath.
func NewCollector(runtime containerizer.ContainerRuntime, fs billy.Filesystem, logPath string) *Collector {
	if logPath == "" {
		logPath = DefaultLogPath
	}
	return &Collector{runtime: runtime, fs: fs, logPath: logPath}
}

// CollectLogs writes the log archive of every server container to
// outDir/<container name>. Failures are logged and skipped so the remaining
// containers are still collected; the returned results say which failed.
// Only a missing output directory is returned as an error.
func (c *Collector) CollectLogs(ctx context.Context, containers []containerizer.Container, outDir string) (*taskgroup.Results, error) {
	if err := c.fs.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", outDir, err)
	}

	g := taskgroup.New("log-collection", 0)
	for _, ctr := range containers {
		if naming.IsServiceContainer(ctr.Name, naming.ServiceDatabase) {
			continue
		}
		ctr := ctr
		g.Go(ctr.Name, func() error {
			dest := path.Join(outDir, ctr.Name)
			if err := c.collect(ctx, ctr, dest); err != nil {
				logging.Error(subsystem, err, "Failed to collect logs of %s", ctr.Name)
				return err
			}
			logging.Info(subsystem, "Saved logs of %s to %s", ctr.Name, dest)
			return nil
		})
	}
	return g.Wait(), nil
}

func (c *Collector) collect(ctx context.Context, ctr containerizer.Container, dest string) error {
	rc, err := c.runtime.GetArchive(ctx, ctr, c.logPath)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", c.logPath, err)
	}
	defer rc.Close()

	c.fsMu.Lock()
	defer c.fsMu.Unlock()

	f, err := c.fs.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return f.Close()
}
