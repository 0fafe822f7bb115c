package config

import (
	"time"

	"zonerun/internal/containerizer"
	"zonerun/internal/install"
	"zonerun/internal/irodssetup"
	"zonerun/internal/orchestrator"
)

const (
	DefaultConsumerCount = 3
	DefaultSetupTimeout  = 30 * time.Second
)

// GetDefaultConfig returns the configuration used when no file is given.
func GetDefaultConfig() Config {
	return Config{
		Run: RunConfig{
			ConsumerCount:     DefaultConsumerCount,
			SetupTimeout:      DefaultSetupTimeout,
			CommandPolicy:     string(orchestrator.PolicyContinue),
			PackageResolution: string(install.ResolveFirst),
			Runtime:           string(containerizer.RuntimeTypeDocker),
		},
		Database: DatabaseConfig{
			Name:         "ICAT",
			User:         "irods",
			Password:     "testpassword",
			RootPassword: "testpassword",
		},
		Setup: irodssetup.DefaultConfig(),
	}
}
