package config

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"zonerun/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/zonerun"
	configFileName = "config.yaml"
)

var osUserHomeDir = os.UserHomeDir

// DefaultConfigPath returns ~/.config/zonerun/config.yaml, or an empty
// string when there is no home directory.
func DefaultConfigPath() string {
	homeDir, err := osUserHomeDir()
	if err != nil {
		logging.Debug("ConfigLoader", "Could not determine home directory: %v", err)
		return ""
	}
	return filepath.Join(homeDir, userConfigDir, configFileName)
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// LoadConfig loads the file at configFilePath over the defaults and
// validates the result. A missing file yields the defaults. When required is
// set, a missing file is an error instead.
func LoadConfig(configFilePath string, required bool) (Config, error) {
	config := GetDefaultConfig()
	if configFilePath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			logging.Info("ConfigLoader", "No config file found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: ErrorTypeIO,
			Message:   err.Error(),
			Err:       err,
		}
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		ce := &ConfigurationError{
			FilePath:    configFilePath,
			ErrorType:   ErrorTypeParse,
			Message:     err.Error(),
			Suggestions: []string{"Durations are written like 30s or 2m", "Check the indentation of nested sections"},
			Err:         err,
		}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			ce.LineNumber, _ = strconv.Atoi(m[1])
		}
		return Config{}, ce
	}

	if err := config.Validate(); err != nil {
		return Config{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: ErrorTypeValidation,
			Message:   err.Error(),
			Err:       err,
		}
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}
