package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/cwsl/ka9q_sstvtx/overlay"
	"github.com/cwsl/ka9q_sstvtx/sstv"
)

// configVersionConstraint is the range of config schema versions this build reads
const configVersionConstraint = ">= 1.0, < 2.0"

// Config represents the application configuration
type Config struct {
	Version       string              `yaml:"version"` // Config schema version (e.g., "1.0")
	Defaults      DefaultsConfig      `yaml:"defaults"`
	CW            CWConfig            `yaml:"cw"`
	Encoder       EncoderConfig       `yaml:"encoder"`
	Overlays      []overlay.Spec      `yaml:"overlays"`
	Intermediates IntermediatesConfig `yaml:"intermediates"`
	Logging       LoggingConfig       `yaml:"logging"`
	Prometheus    PrometheusConfig    `yaml:"prometheus"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
}

// DefaultsConfig contains values used when the matching flag is absent
type DefaultsConfig struct {
	Protocol   string `yaml:"protocol"`    // Protocol key (m1, m2, s1, s2, sdx, r36, r72)
	Format     string `yaml:"format"`      // Audio container (wav, aiff)
	SampleRate int    `yaml:"sample_rate"` // Output sample rate in Hz
	Aspect     string `yaml:"aspect"`      // Aspect mode (center, pad, stretch)
}

// CWConfig contains CW identification defaults
type CWConfig struct {
	WPM    int     `yaml:"wpm"`    // Keying speed in words per minute
	Tone   int     `yaml:"tone"`   // Tone frequency in Hz
	Prefix *string `yaml:"prefix"` // Text sent before the callsign (default "SSTV DE", "" for none)
	GapMS  int     `yaml:"gap_ms"` // Silence between image and CW in milliseconds
}

// EncoderConfig contains signal generation settings
type EncoderConfig struct {
	Amplitude float64 `yaml:"amplitude"` // Peak level as a fraction of full scale
	Preamble  *bool   `yaml:"preamble"`  // Send attention tones before the VIS header (default true)
	Trailer   *bool   `yaml:"trailer"`   // Send end-of-frame tones after the image (default true)
}

// IntermediatesConfig controls files kept with -K
type IntermediatesConfig struct {
	Dir string `yaml:"dir"` // Output directory, empty for next to the audio file
	Raw bool   `yaml:"raw"` // Write the sample dump uncompressed
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Verbose    bool `yaml:"verbose"`    // Log encoder progress
	Timestamps bool `yaml:"timestamps"` // Prefix log lines with microsecond timestamps
}

// PrometheusConfig contains Prometheus metrics settings
type PrometheusConfig struct {
	Pushgateway PushgatewayConfig `yaml:"pushgateway"` // Pushgateway configuration
}

// PushgatewayConfig contains Prometheus Pushgateway settings
type PushgatewayConfig struct {
	Enabled  bool   `yaml:"enabled"`  // Enable/disable pushing to Pushgateway
	URL      string `yaml:"url"`      // Pushgateway URL (e.g., http://pushgateway:9091)
	Job      string `yaml:"job"`      // Job name (default sstvtx)
	Instance string `yaml:"instance"` // Instance name, also the basic auth username
	Token    string `yaml:"token"`    // Basic auth password
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled"`         // Enable/disable the encode-complete event
	Broker         string        `yaml:"broker"`          // MQTT broker URL (e.g., tcp://mqtt.example.com:1883)
	Username       string        `yaml:"username"`        // MQTT authentication username
	Password       string        `yaml:"password"`        // MQTT authentication password
	TopicPrefix    string        `yaml:"topic_prefix"`    // Topic prefix for all messages
	QoS            byte          `yaml:"qos"`             // MQTT Quality of Service level (0, 1, or 2)
	Retain         bool          `yaml:"retain"`          // Retain flag for MQTT messages
	IncludeMetrics bool          `yaml:"include_metrics"` // Attach a metrics snapshot to the event
	TLS            MQTTTLSConfig `yaml:"tls"`             // TLS/SSL settings
}

// MQTTTLSConfig contains MQTT TLS/SSL settings
type MQTTTLSConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Enable/disable TLS
	CACert     string `yaml:"ca_cert"`     // Path to CA certificate file
	ClientCert string `yaml:"client_cert"` // Path to client certificate file (optional)
	ClientKey  string `yaml:"client_key"`  // Path to client key file (optional)
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults sets defaults for fields not specified
func (c *Config) applyDefaults() {
	if c.Defaults.Protocol == "" {
		c.Defaults.Protocol = "m1"
	}
	if c.Defaults.Format == "" {
		c.Defaults.Format = "wav"
	}
	if c.Defaults.SampleRate == 0 {
		c.Defaults.SampleRate = sstv.DefaultSampleRate
	}
	if c.Defaults.Aspect == "" {
		c.Defaults.Aspect = string(sstv.AspectCenter)
	}
	if c.CW.WPM == 0 {
		c.CW.WPM = sstv.DefaultWPM
	}
	if c.CW.Tone == 0 {
		c.CW.Tone = sstv.DefaultToneHz
	}
	if c.CW.Prefix == nil {
		prefix := "SSTV DE"
		c.CW.Prefix = &prefix
	}
	if c.CW.GapMS == 0 {
		c.CW.GapMS = int(sstv.DefaultCWGap * 1000)
	}
	if c.Encoder.Amplitude == 0 {
		c.Encoder.Amplitude = sstv.DefaultAmplitude
	}
	if c.Encoder.Preamble == nil {
		enabled := true
		c.Encoder.Preamble = &enabled
	}
	if c.Encoder.Trailer == nil {
		enabled := true
		c.Encoder.Trailer = &enabled
	}
	if c.Prometheus.Pushgateway.Job == "" {
		c.Prometheus.Pushgateway.Job = "sstvtx"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "sstvtx"
	}
}

// Validate validates the configuration. Encoder parameters (protocol,
// sample rate, aspect, CW) are checked by the encoder so that they map
// to their own exit codes.
func (c *Config) Validate() error {
	if c.Version != "" {
		v, err := version.NewVersion(c.Version)
		if err != nil {
			return fmt.Errorf("invalid config version %q: %w", c.Version, err)
		}
		constraint, err := version.NewConstraint(configVersionConstraint)
		if err != nil {
			return err
		}
		if !constraint.Check(v) {
			return fmt.Errorf("config version %s is not supported (need %s)", v, configVersionConstraint)
		}
	}
	if c.Encoder.Amplitude <= 0 || c.Encoder.Amplitude > 1 {
		return fmt.Errorf("encoder.amplitude must be in (0, 1]")
	}
	if c.CW.GapMS < 0 {
		return fmt.Errorf("cw.gap_ms must not be negative")
	}
	if len(c.Overlays) > overlay.MaxOverlays {
		return fmt.Errorf("overlays: at most %d allowed", overlay.MaxOverlays)
	}
	for i, o := range c.Overlays {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("overlays[%d]: %w", i, err)
		}
	}
	if c.Prometheus.Pushgateway.Enabled && c.Prometheus.Pushgateway.URL == "" {
		return fmt.Errorf("prometheus.pushgateway.url is required when enabled")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when enabled")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}
	return nil
}
