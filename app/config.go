package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kbukum/stepflow/config"
	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/history"
	"github.com/kbukum/stepflow/httpclient"
	"github.com/kbukum/stepflow/llm"
	"github.com/kbukum/stepflow/observability"
	"github.com/kbukum/stepflow/redis"
	"github.com/kbukum/stepflow/server"
	"github.com/kbukum/stepflow/validation"
)

// Name is the application name used for config discovery and env prefixes.
const Name = "stepflow"

// Config is the full stepflow configuration. Every setting a step needs is
// here; nothing reads the environment after LoadConfig returns.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	LLM           llm.Config           `yaml:"llm" mapstructure:"llm"`
	Web           httpclient.Config    `yaml:"web" mapstructure:"web"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	CacheTTL      time.Duration        `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	History       history.Config       `yaml:"history" mapstructure:"history"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// providerKeyEnv names the conventional key variable for each provider,
// consulted when llm.api_key is unset.
var providerKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// LoadConfig reads stepflow.yml, .env and STEPFLOW_* variables into a Config
// with defaults applied. It does not validate.
func LoadConfig(opts ...config.Option) (*Config, error) {
	var cfg Config
	if err := config.Load(Name, &cfg, opts...); err != nil {
		return nil, apperrors.Configuration(err.Error()).WithCause(err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in unset fields across every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()

	if c.LLM.Provider == "" {
		c.LLM.Provider = "anthropic"
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.APIKey == "" {
		if env, ok := providerKeyEnv[c.LLM.Provider]; ok {
			c.LLM.APIKey = os.Getenv(env)
		}
	}
	c.LLM.ApplyDefaults()

	c.Web.ApplyDefaults()
	c.Redis.ApplyDefaults()
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
	c.History.ApplyDefaults()
	c.Server.ApplyDefaults()

	c.Observability.ServiceName = c.Name
	c.Observability.ServiceVersion = c.Version
	c.Observability.Environment = c.Environment
	c.Observability.ApplyDefaults()
}

// Validate checks the whole configuration and reports the first problem as
// a CONFIGURATION_ERROR.
func (c *Config) Validate() error {
	checks := []struct {
		section string
		fn      func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"llm", c.LLM.Validate},
		{"web", c.Web.Validate},
		{"redis", c.Redis.Validate},
		{"history", c.History.Validate},
		{"server", c.Server.Validate},
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return apperrors.Configuration(fmt.Sprintf("%s: %v", chk.section, err)).
				WithDetail("section", chk.section)
		}
	}
	if err := validation.Validate(c); err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return apperrors.Configuration(appErr.Message).WithCause(err)
		}
		return apperrors.Configuration(err.Error()).WithCause(err)
	}
	return nil
}
