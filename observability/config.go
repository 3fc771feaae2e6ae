package observability

import (
	"fmt"
	"time"
)

// Exporter names
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// OTLP protocols
const (
	ProtocolHTTP = "http"
	ProtocolGRPC = "grpc"
)

const (
	defaultServiceName    = "authclient"
	defaultSampleRate     = 1.0
	defaultMetricInterval = 60 * time.Second
	defaultBatchTimeout   = 5 * time.Second
)

// Config controls where the client's spans and metrics are exported
type Config struct {
	Enabled        bool              `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName    string            `koanf:"service_name" json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string            `koanf:"service_version" json:"service_version" yaml:"service_version" mapstructure:"service_version"`
	Exporter       string            `koanf:"exporter" json:"exporter" yaml:"exporter" mapstructure:"exporter"`
	Protocol       string            `koanf:"protocol" json:"protocol" yaml:"protocol" mapstructure:"protocol"`
	Endpoint       string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool              `koanf:"insecure" json:"insecure" yaml:"insecure" mapstructure:"insecure"`
	Headers        map[string]string `koanf:"headers" json:"headers" yaml:"headers" mapstructure:"headers"`

	// SampleRate is the fraction of traces recorded, 0.0 to 1.0. Default: 1.0.
	SampleRate float64 `koanf:"sample_rate" json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`

	// MetricInterval is how often metrics are pushed. Default: 60s.
	MetricInterval time.Duration `koanf:"metric_interval" json:"metric_interval" yaml:"metric_interval" mapstructure:"metric_interval"`
}

// ApplyDefaults fills unset fields. A zero sample rate is kept only when
// observability is disabled.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.Exporter == "" {
		c.Exporter = ExporterStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.SampleRate == 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = defaultMetricInterval
	}
}

// Validate checks an enabled configuration
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidSampleRate, c.SampleRate)
	}

	switch c.Exporter {
	case ExporterStdout:
		return nil
	case ExporterOTLP:
	default:
		return fmt.Errorf("exporter '%s': %w", c.Exporter, ErrInvalidExporter)
	}

	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		return fmt.Errorf("protocol '%s': %w", c.Protocol, ErrInvalidProtocol)
	}
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	return nil
}
