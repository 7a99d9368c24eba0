// Package config provides the configuration schema for httpdissect.
//
// Configuration is file-based (httpdissect.yaml) with environment variable
// overrides prefixed HTTPDISSECT_. Every section is optional: an empty
// configuration runs an in-memory store with HTTP bound to ports 80 and
// 8080 and no API authentication.
package config

import (
	"time"
)

// Config is the top-level configuration.
type Config struct {
	// Server configures the inspection API listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Layer configures which ports are gated for HTTP.
	Layer LayerConfig `yaml:"layer" mapstructure:"layer"`

	// Store selects where captured records are kept.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Capture tunes the asynchronous capture writer.
	Capture CaptureConfig `yaml:"capture" mapstructure:"capture"`

	// Auth configures bearer API keys for the /v1 routes.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// RateLimit throttles the /v1 routes per API key or client IP.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// DevMode forces debug logging.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the listen address. Defaults to "127.0.0.1:8081".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`
	// LogLevel is debug, info, warn or error. Defaults to "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// ReadTimeout bounds reading a request. Defaults to "10s".
	ReadTimeout string `yaml:"read_timeout" mapstructure:"read_timeout" validate:"omitempty,duration"`
	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
}

// LayerConfig lists the ports the HTTP guesser is bound to.
type LayerConfig struct {
	// Ports defaults to [80, 8080].
	Ports []int `yaml:"ports" mapstructure:"ports" validate:"dive,min=1,max=65535"`
}

// StoreConfig selects the capture store.
type StoreConfig struct {
	// Driver is memory, sqlite or file. Defaults to "memory".
	Driver string `yaml:"driver" mapstructure:"driver" validate:"omitempty,oneof=memory sqlite file"`
	// Path is the database or JSON-lines file. Required for sqlite and file.
	Path string `yaml:"path" mapstructure:"path" validate:"store_path"`
	// BufferSize is the ring capacity of the memory store and the record
	// limit of the file store. Defaults to 1000.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" validate:"gte=0"`
}

// CaptureConfig tunes the capture writer.
type CaptureConfig struct {
	// ChannelSize is the queue capacity. Defaults to 1000.
	ChannelSize int `yaml:"channel_size" mapstructure:"channel_size" validate:"gte=0"`
	// BatchSize is the number of records per store write. Defaults to 100.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=0"`
	// FlushInterval is the maximum time a record waits in a batch. Defaults to "1s".
	FlushInterval string `yaml:"flush_interval" mapstructure:"flush_interval" validate:"omitempty,duration"`
	// SendTimeout is how long Write blocks on a full queue before dropping.
	// Defaults to "100ms".
	SendTimeout string `yaml:"send_timeout" mapstructure:"send_timeout" validate:"omitempty,duration"`
	// WarningThreshold is the queue fill percentage that triggers a warning.
	// Defaults to 80.
	WarningThreshold int `yaml:"warning_threshold" mapstructure:"warning_threshold" validate:"gte=0,lte=100"`
}

// AuthConfig holds API keys.
type AuthConfig struct {
	APIKeys []APIKeyConfig `yaml:"api_keys" mapstructure:"api_keys" validate:"dive"`
}

// APIKeyConfig is a named argon2id hash. Generate with "httpdissect hash-key".
type APIKeyConfig struct {
	Name    string `yaml:"name" mapstructure:"name" validate:"required"`
	KeyHash string `yaml:"key_hash" mapstructure:"key_hash" validate:"required,argon2id_hash"`
}

// RateLimitConfig configures request throttling.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Rate is the sustained number of requests per Period. Defaults to 100.
	Rate int `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	// Burst is the number of requests admitted at once. Defaults to Rate.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	// Period defaults to "1m".
	Period string `yaml:"period" mapstructure:"period" validate:"omitempty,duration"`
	// CleanupInterval is how often idle keys are evicted. Defaults to "5m".
	CleanupInterval string `yaml:"cleanup_interval" mapstructure:"cleanup_interval" validate:"omitempty,duration"`
	// MaxTTL is how long a key may stay idle. Defaults to "1h".
	MaxTTL string `yaml:"max_ttl" mapstructure:"max_ttl" validate:"omitempty,duration"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Output is "stdout" or "file://<absolute-path>". Defaults to "stdout".
	Output string `yaml:"output" mapstructure:"output" validate:"omitempty,telemetry_output"`
	// MetricsInterval is the metric export period. Defaults to "30s".
	MetricsInterval string `yaml:"metrics_interval" mapstructure:"metrics_interval" validate:"omitempty,duration"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	// Localhost only unless the user opts in.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8081"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}

	if len(c.Layer.Ports) == 0 {
		c.Layer.Ports = []int{80, 8080}
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.BufferSize == 0 {
		c.Store.BufferSize = 1000
	}

	if c.Capture.ChannelSize == 0 {
		c.Capture.ChannelSize = 1000
	}
	if c.Capture.BatchSize == 0 {
		c.Capture.BatchSize = 100
	}
	if c.Capture.FlushInterval == "" {
		c.Capture.FlushInterval = "1s"
	}
	if c.Capture.SendTimeout == "" {
		c.Capture.SendTimeout = "100ms"
	}
	if c.Capture.WarningThreshold == 0 {
		c.Capture.WarningThreshold = 80
	}

	if c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = 100
	}
	if c.RateLimit.Period == "" {
		c.RateLimit.Period = "1m"
	}
	if c.RateLimit.CleanupInterval == "" {
		c.RateLimit.CleanupInterval = "5m"
	}
	if c.RateLimit.MaxTTL == "" {
		c.RateLimit.MaxTTL = "1h"
	}

	if c.Telemetry.Output == "" {
		c.Telemetry.Output = "stdout"
	}
	if c.Telemetry.MetricsInterval == "" {
		c.Telemetry.MetricsInterval = "30s"
	}
}

// SetDevDefaults applies development overrides. Called after SetDefaults.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Server.LogLevel = "debug"
}

// LayerPorts returns Layer.Ports as port numbers. Call after Validate.
func (c *Config) LayerPorts() []uint16 {
	out := make([]uint16, 0, len(c.Layer.Ports))
	for _, p := range c.Layer.Ports {
		out = append(out, uint16(p))
	}
	return out
}

// ReadTimeoutDuration returns the parsed server read timeout.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return parseDuration(s.ReadTimeout, 10*time.Second)
}

// FlushIntervalDuration returns the parsed flush interval.
func (c CaptureConfig) FlushIntervalDuration() time.Duration {
	return parseDuration(c.FlushInterval, time.Second)
}

// SendTimeoutDuration returns the parsed send timeout.
func (c CaptureConfig) SendTimeoutDuration() time.Duration {
	return parseDuration(c.SendTimeout, 100*time.Millisecond)
}

// PeriodDuration returns the parsed rate limit period.
func (r RateLimitConfig) PeriodDuration() time.Duration {
	return parseDuration(r.Period, time.Minute)
}

// CleanupIntervalDuration returns the parsed idle key sweep interval.
func (r RateLimitConfig) CleanupIntervalDuration() time.Duration {
	return parseDuration(r.CleanupInterval, 5*time.Minute)
}

// MaxTTLDuration returns the parsed idle key lifetime.
func (r RateLimitConfig) MaxTTLDuration() time.Duration {
	return parseDuration(r.MaxTTL, time.Hour)
}

// MetricsIntervalDuration returns the parsed metrics export interval.
func (t TelemetryConfig) MetricsIntervalDuration() time.Duration {
	return parseDuration(t.MetricsInterval, 30*time.Second)
}

// parseDuration returns fallback for empty or invalid values. Validate
// rejects invalid values before this is reached.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
