package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/stepflow/logger"
)

// ServiceConfig holds the fields every stepflow entrypoint needs.
// Embed it with mapstructure:",squash" to extend it.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

var environments = []string{"development", "staging", "production"}

// ApplyDefaults fills in unset fields.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "stepflow"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the service fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !slices.Contains(environments, c.Environment) {
		return fmt.Errorf("environment must be one of %v (got: %s)", environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
