package config

import (
	"fmt"
	"strings"

	"zonerun/internal/containerizer"
	"zonerun/internal/install"
	"zonerun/internal/orchestrator"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value interface{}) {
	*ve = append(*ve, ValidationError{Field: field, Value: value, Message: message})
}

func (ve *ValidationErrors) oneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")), value)
}

func (ve *ValidationErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required", value)
	}
}

// Validate checks every section and returns all problems at once.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.Run.ConsumerCount < 0 {
		errs.Add("run.consumer_count", "must not be negative", c.Run.ConsumerCount)
	}
	if c.Run.SetupTimeout <= 0 {
		errs.Add("run.setup_timeout", "must be positive", c.Run.SetupTimeout)
	}
	if c.Run.Parallelism < 0 {
		errs.Add("run.parallelism", "must not be negative", c.Run.Parallelism)
	}
	errs.oneOf("run.command_policy", c.Run.CommandPolicy, string(orchestrator.PolicyContinue), string(orchestrator.PolicyAbort))
	errs.oneOf("run.package_resolution", c.Run.PackageResolution, string(install.ResolveFirst), string(install.ResolveStrict))
	errs.oneOf("run.runtime", c.Run.Runtime, string(containerizer.RuntimeTypeDocker), string(containerizer.RuntimeTypeDockerEngine))

	errs.required("database.name", c.Database.Name)
	errs.required("database.user", c.Database.User)
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		errs.Add("database.port", "must be a port number", c.Database.Port)
	}

	errs.required("setup.zone_name", c.Setup.ZoneName)
	errs.required("setup.service_account_name", c.Setup.ServiceAccountName)
	if len(c.Setup.NegotiationKey) != 32 {
		errs.Add("setup.negotiation_key", "must be exactly 32 bytes", c.Setup.NegotiationKey)
	}
	if len(c.Setup.ControlPlaneKey) != 32 {
		errs.Add("setup.control_plane_key", "must be exactly 32 bytes", c.Setup.ControlPlaneKey)
	}
	if c.Setup.ParallelPortRangeBegin > c.Setup.ParallelPortRangeEnd {
		errs.Add("setup.parallel_port_range_begin", "must not exceed parallel_port_range_end", c.Setup.ParallelPortRangeBegin)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
