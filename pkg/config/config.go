// Package config loads consumer and provider settings from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonnelaakso/emberplus-go/pkg/connection"
	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
	"github.com/jonnelaakso/emberplus-go/pkg/log"
)

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel = "EMBER_LOG_LEVEL"
	EnvDevMode  = "EMBER_DEV_MODE"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// ReconnectConfig is the fixed-delay reconnection schedule.
type ReconnectConfig struct {
	MaxAttempts int `yaml:"maxAttempts"`
	DelayMs     int `yaml:"delayMs"`
}

// WatchConfig shapes watch records.
type WatchConfig struct {
	OnlyOnChange         bool `yaml:"onlyOnChange"`
	IncludePreviousValue bool `yaml:"includePreviousValue"`
	IncludeMetadata      bool `yaml:"includeMetadata"`
}

// LogConfig selects operational and protocol logging.
type LogConfig struct {
	// Level is DEBUG, INFO, WARN, ERROR or NONE. Empty derives it from
	// DevMode.
	Level   string `yaml:"level"`
	DevMode bool   `yaml:"devMode"`

	// ProtocolFile, when set, captures protocol events to a CBOR file.
	ProtocolFile string `yaml:"protocolFile"`
}

// Config is the full configuration.
type Config struct {
	Host               string          `yaml:"host"`
	Port               int             `yaml:"port"`
	ConnectTimeoutMs   int             `yaml:"connectTimeoutMs"`
	OperationTimeoutMs int             `yaml:"operationTimeoutMs"`
	DirectoryTimeoutMs int             `yaml:"directoryTimeoutMs"`
	Reconnect          ReconnectConfig `yaml:"reconnect"`
	Watch              WatchConfig     `yaml:"watch"`
	Log                LogConfig       `yaml:"log"`
}

// Default returns the built-in defaults. Host is left empty.
func Default() *Config {
	return &Config{
		Port:               9000,
		ConnectTimeoutMs:   int(connection.DefaultConnectTimeout / time.Millisecond),
		OperationTimeoutMs: int(consumer.DefaultOperationTimeout / time.Millisecond),
		DirectoryTimeoutMs: int(consumer.DefaultDirectoryTimeout / time.Millisecond),
		Reconnect: ReconnectConfig{
			MaxAttempts: connection.DefaultMaxAttempts,
			DelayMs:     int(connection.DefaultRetryDelay / time.Millisecond),
		},
		Watch: WatchConfig{
			OnlyOnChange: true,
		},
	}
}

// Parse decodes YAML over the defaults. Keys absent from data keep their
// default values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path comes from a flag.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides using lookup (os.LookupEnv when
// nil).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvDevMode); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Log.DevMode = b
		}
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Log.Level = strings.TrimSpace(v)
	}
}

// Verbosity resolves the configured log level.
func (c *Config) Verbosity() (log.Verbosity, error) {
	if strings.TrimSpace(c.Log.Level) == "" {
		return log.DefaultVerbosity(c.Log.DevMode), nil
	}
	return log.ParseVerbosity(c.Log.Level)
}

// Validate checks every field.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", c.Port))
	}
	if c.ConnectTimeoutMs <= 0 {
		errs = append(errs, errors.New("connectTimeoutMs must be positive"))
	}
	if c.OperationTimeoutMs <= 0 {
		errs = append(errs, errors.New("operationTimeoutMs must be positive"))
	}
	if c.DirectoryTimeoutMs <= 0 {
		errs = append(errs, errors.New("directoryTimeoutMs must be positive"))
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Verbosity(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RetryPolicy converts the reconnect section.
func (c *Config) RetryPolicy() connection.RetryPolicy {
	return connection.RetryPolicy{
		MaxAttempts: c.Reconnect.MaxAttempts,
		Delay:       time.Duration(c.Reconnect.DelayMs) * time.Millisecond,
	}
}

// ClientConfig converts the settings for consumer.New. Loggers are left
// for the caller.
func (c *Config) ClientConfig() consumer.Config {
	return consumer.Config{
		Host:             c.Host,
		Port:             c.Port,
		ConnectTimeout:   time.Duration(c.ConnectTimeoutMs) * time.Millisecond,
		OperationTimeout: time.Duration(c.OperationTimeoutMs) * time.Millisecond,
		DirectoryTimeout: time.Duration(c.DirectoryTimeoutMs) * time.Millisecond,
		OnlyOnChange:     c.Watch.OnlyOnChange,
	}
}

// WatchOptions converts the watch and reconnect sections.
func (c *Config) WatchOptions() consumer.WatchOptions {
	return consumer.WatchOptions{
		IncludePreviousValue: c.Watch.IncludePreviousValue,
		IncludeMetadata:      c.Watch.IncludeMetadata,
		Retry:                c.RetryPolicy(),
	}
}
