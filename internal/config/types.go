package config

import (
	"time"

	"zonerun/internal/irodssetup"
)

// Config is the top-level configuration structure for zonerun.
type Config struct {
	Run      RunConfig         `yaml:"run"`
	Database DatabaseConfig    `yaml:"database"`
	Setup    irodssetup.Config `yaml:"setup"`
}

// RunConfig holds the run policy.
type RunConfig struct {
	ConsumerCount     int           `yaml:"consumer_count"`
	SetupTimeout      time.Duration `yaml:"setup_timeout"`
	CommandPolicy     string        `yaml:"command_policy"`
	PackageResolution string        `yaml:"package_resolution"`
	Parallelism       int           `yaml:"parallelism"`
	Runtime           string        `yaml:"runtime"`
}

// DatabaseConfig describes the catalog database.
type DatabaseConfig struct {
	Name         string `yaml:"name"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	RootPassword string `yaml:"root_password"`
	Port         int    `yaml:"port,omitempty"`      // Zero selects the engine default
	UserHost     string `yaml:"user_host,omitempty"` // Empty selects the engine default
}

// PortOr returns the configured port, or def when none is configured.
func (d DatabaseConfig) PortOr(def int) int {
	if d.Port > 0 {
		return d.Port
	}
	return def
}

// SetupConfig returns the setup answers with the catalog credentials of the
// database section. enginePort is used when no port is configured.
func (c Config) SetupConfig(enginePort int) irodssetup.Config {
	s := c.Setup
	s.DatabaseName = c.Database.Name
	s.DatabaseUsername = c.Database.User
	s.DatabasePassword = c.Database.Password
	s.DatabaseServerPort = c.Database.PortOr(enginePort)
	return s
}
