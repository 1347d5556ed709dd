package llm

import (
	"fmt"
	"time"

	"github.com/kbukum/stepflow/resilience"
)

// Config configures an Adapter.
type Config struct {
	// Provider selects the dialect, e.g. "anthropic" or "openai".
	Provider string `yaml:"provider" mapstructure:"provider" validate:"required,oneof=anthropic openai"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key" mapstructure:"api_key" validate:"required"`

	// Model is the default model. Empty uses the dialect's default.
	Model string `yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`

	// MaxTokens is the default response limit.
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`

	// Timeout bounds one HTTP attempt. Defaults to 120s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry configures retrying of retryable provider failures.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

const (
	defaultTimeout   = 120 * time.Second
	defaultMaxTokens = 1024
)

// ApplyDefaults sets defaults that do not depend on the dialect.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
}

// Validate checks what New needs to build an adapter.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("llm: provider is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("llm: api key is required for provider %q", c.Provider)
	}
	return nil
}
