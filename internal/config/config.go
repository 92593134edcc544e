// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides the condgate service configuration: a YAML file
// with CONDGATE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	condgateerrors "github.com/tombee/condgate/pkg/errors"
)

// Config represents the complete condgate configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddr is the TCP address the daemon listens on.
	// Environment: CONDGATE_LISTEN
	// Default: 127.0.0.1:8080
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`

	// RateLimit is the sustained request rate per second allowed by the
	// token-bucket limiter. Zero disables rate limiting.
	// Environment: CONDGATE_RATE_LIMIT
	RateLimit float64 `yaml:"rate_limit,omitempty"`

	// RateBurst is the limiter's burst size. Defaults to twice RateLimit.
	RateBurst int `yaml:"rate_burst,omitempty"`

	// MaxBatchSize caps the number of items in a batch-evaluate request.
	// Default: 1000
	MaxBatchSize int `yaml:"max_batch_size,omitempty"`
}

// CacheConfig configures the evaluation caches.
type CacheConfig struct {
	// LocalSize bounds the in-process result cache.
	// Environment: CONDGATE_CACHE_SIZE
	// Default: 10000
	LocalSize int `yaml:"local_size,omitempty"`

	// CompiledSize bounds the compiled-expression cache.
	// Default: 1000
	CompiledSize int `yaml:"compiled_size,omitempty"`

	// SharedPath is the SQLite file backing the optional shared tier.
	// Empty disables the shared tier.
	// Environment: CONDGATE_SHARED_CACHE
	SharedPath string `yaml:"shared_path,omitempty"`

	// SharedTTL is the time-to-live for shared-tier entries.
	// Environment: CONDGATE_SHARED_TTL
	// Default: 1h
	SharedTTL time.Duration `yaml:"shared_ttl,omitempty"`

	// SharedTimeout bounds each shared-tier call.
	// Default: 2s
	SharedTimeout time.Duration `yaml:"shared_timeout,omitempty"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the log level: debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// Format sets the output format: json, text.
	Format string `yaml:"format,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns tracing on.
	Enabled bool `yaml:"enabled"`

	// Exporter selects the span exporter: stdout, otlp.
	// Default: stdout
	Exporter string `yaml:"exporter,omitempty"`

	// Endpoint is the OTLP gRPC endpoint (host:port) when Exporter is otlp.
	// Environment: CONDGATE_OTLP_ENDPOINT
	Endpoint string `yaml:"endpoint,omitempty"`

	// SampleRate is the fraction of requests traced, 0.0-1.0.
	// Default: 1.0
	SampleRate float64 `yaml:"sample_rate,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "127.0.0.1:8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.RateBurst <= 0 && c.Server.RateLimit > 0 {
		c.Server.RateBurst = int(c.Server.RateLimit * 2)
	}
	if c.Server.MaxBatchSize <= 0 {
		c.Server.MaxBatchSize = 1000
	}
	if c.Cache.LocalSize <= 0 {
		c.Cache.LocalSize = 10000
	}
	if c.Cache.CompiledSize <= 0 {
		c.Cache.CompiledSize = 1000
	}
	if c.Cache.SharedTTL <= 0 {
		c.Cache.SharedTTL = time.Hour
	}
	if c.Cache.SharedTimeout <= 0 {
		c.Cache.SharedTimeout = 2 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "stdout"
	}
	if c.Tracing.SampleRate <= 0 {
		c.Tracing.SampleRate = 1.0
	}
}

// Load reads the configuration file at path (if path is non-empty and the
// file exists), applies environment overrides, then defaults. A missing file
// at an explicitly requested path is an error; an empty path loads
// env-and-defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &condgateerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("cannot read %s", path),
				Cause:  err,
			}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &condgateerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("cannot parse %s", path),
				Cause:  err,
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays CONDGATE_* environment variables.
func (c *Config) applyEnv() {
	if val := os.Getenv("CONDGATE_LISTEN"); val != "" {
		c.Server.ListenAddr = val
	}
	if val := os.Getenv("CONDGATE_RATE_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Server.RateLimit = f
		}
	}
	if val := os.Getenv("CONDGATE_CACHE_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.LocalSize = n
		}
	}
	if val := os.Getenv("CONDGATE_COMPILED_CACHE_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.CompiledSize = n
		}
	}
	if val := os.Getenv("CONDGATE_SHARED_CACHE"); val != "" {
		c.Cache.SharedPath = val
	}
	if val := os.Getenv("CONDGATE_SHARED_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Cache.SharedTTL = d
		}
	}
	if val := os.Getenv("CONDGATE_OTLP_ENDPOINT"); val != "" {
		c.Tracing.Endpoint = val
		c.Tracing.Exporter = "otlp"
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

// validate rejects configurations that cannot work.
func (c *Config) validate() error {
	if c.Tracing.Enabled && c.Tracing.Exporter == "otlp" && c.Tracing.Endpoint == "" {
		return &condgateerrors.ConfigError{
			Key:    "tracing.endpoint",
			Reason: "otlp exporter requires an endpoint",
		}
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return &condgateerrors.ConfigError{
			Key:    "tracing.sample_rate",
			Reason: "must be between 0.0 and 1.0",
		}
	}
	return nil
}
