package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5000, cfg.ConnectTimeoutMs)
	assert.Equal(t, 10000, cfg.OperationTimeoutMs)
	assert.Equal(t, 3000, cfg.DirectoryTimeoutMs)
	assert.Equal(t, 5, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, 5000, cfg.Reconnect.DelayMs)
	assert.True(t, cfg.Watch.OnlyOnChange)
	assert.False(t, cfg.Watch.IncludePreviousValue)
	assert.False(t, cfg.Watch.IncludeMetadata)

	v, err := cfg.Verbosity()
	require.NoError(t, err)
	assert.Equal(t, log.VerbosityWarn, v)

	assert.Error(t, cfg.Validate(), "host has no default")
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
host: 10.0.0.5
connectTimeoutMs: 2000
reconnect:
  maxAttempts: 3
watch:
  includeMetadata: true
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "10.0.0.5", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2000, cfg.ConnectTimeoutMs)
	assert.Equal(t, 3, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, 5000, cfg.Reconnect.DelayMs)
	assert.True(t, cfg.Watch.OnlyOnChange)
	assert.True(t, cfg.Watch.IncludeMetadata)

	cc := cfg.ClientConfig()
	assert.Equal(t, 2*time.Second, cc.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cc.OperationTimeout)
	assert.True(t, cc.OnlyOnChange)

	wo := cfg.WatchOptions()
	assert.Equal(t, 3, wo.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, wo.Retry.Delay)
	assert.True(t, wo.IncludeMetadata)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("port: [1, 2"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: mixer.local\nport: 9092\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mixer.local", cfg.Host)
	assert.Equal(t, 9092, cfg.Port)

	_, err = Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Run("DevModeRaisesDefault", func(t *testing.T) {
		cfg := Default()
		cfg.ApplyEnv(env(map[string]string{EnvDevMode: "true"}))

		v, err := cfg.Verbosity()
		require.NoError(t, err)
		assert.Equal(t, log.VerbosityDebug, v)
	})

	t.Run("ExplicitLevelWins", func(t *testing.T) {
		cfg := Default()
		cfg.ApplyEnv(env(map[string]string{EnvDevMode: "1", EnvLogLevel: "error"}))

		v, err := cfg.Verbosity()
		require.NoError(t, err)
		assert.Equal(t, log.VerbosityError, v)
	})

	t.Run("NoneLevel", func(t *testing.T) {
		cfg := Default()
		cfg.ApplyEnv(env(map[string]string{EnvLogLevel: "NONE"}))

		v, err := cfg.Verbosity()
		require.NoError(t, err)
		assert.Equal(t, log.VerbosityNone, v)
	})

	t.Run("BadDevModeIgnored", func(t *testing.T) {
		cfg := Default()
		cfg.ApplyEnv(env(map[string]string{EnvDevMode: "sometimes"}))
		assert.False(t, cfg.Log.DevMode)
	})

	t.Run("Unset", func(t *testing.T) {
		cfg := Default()
		cfg.ApplyEnv(env(nil))
		assert.Empty(t, cfg.Log.Level)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Host = "127.0.0.1"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyHost", func(c *Config) { c.Host = "  " }},
		{"PortZero", func(c *Config) { c.Port = 0 }},
		{"PortTooLarge", func(c *Config) { c.Port = 65536 }},
		{"ConnectTimeout", func(c *Config) { c.ConnectTimeoutMs = 0 }},
		{"OperationTimeout", func(c *Config) { c.OperationTimeoutMs = -1 }},
		{"DirectoryTimeout", func(c *Config) { c.DirectoryTimeoutMs = 0 }},
		{"MaxAttempts", func(c *Config) { c.Reconnect.MaxAttempts = 0 }},
		{"NegativeDelay", func(c *Config) { c.Reconnect.DelayMs = -5 }},
		{"LogLevel", func(c *Config) { c.Log.Level = "chatty" }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := valid()
	cfg.Reconnect.DelayMs = 0
	assert.NoError(t, cfg.Validate(), "zero delay is allowed")
}
