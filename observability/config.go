package observability

import "time"

// Config enables OpenTelemetry export. With Enabled false nothing is
// installed and the global no-op providers stay in place.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP/HTTP collector host:port.
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	ExportInterval time.Duration `yaml:"export_interval" mapstructure:"export_interval"`

	ServiceName    string `yaml:"-" mapstructure:"-"`
	ServiceVersion string `yaml:"-" mapstructure:"-"`
	Environment    string `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.ExportInterval <= 0 {
		c.ExportInterval = 15 * time.Second
	}
	if c.ServiceName == "" {
		c.ServiceName = "stepflow"
	}
}
