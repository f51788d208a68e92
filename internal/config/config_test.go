package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1", cfg.API.ListenAddr)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "zmap", cfg.Engine.Binary)
	assert.Equal(t, 30*time.Second, cfg.Engine.IntrospectionTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := []byte(`
api:
  listen_addr: 0.0.0.0
  port: 9090
engine:
  binary: /usr/local/sbin/zmap
  introspection_timeout: 10s
logging:
  level: debug
  format: json
`)
		require.NoError(t, os.WriteFile(path, content, 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.API.ListenAddr)
		assert.Equal(t, 9090, cfg.API.Port)
		assert.Equal(t, "/usr/local/sbin/zmap", cfg.Engine.Binary)
		assert.Equal(t, 10*time.Second, cfg.Engine.IntrospectionTimeout)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
	})

	t.Run("json file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		content := []byte(`{"api": {"listen_addr": "127.0.0.1", "port": 8888}}`)
		require.NoError(t, os.WriteFile(path, content, 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8888, cfg.API.Port)
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api: [broken"), 0644))

		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api:\n  port: 99999\n"), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"zero port", func(c *Config) { c.API.Port = 0 }, "port"},
		{"port too high", func(c *Config) { c.API.Port = 70000 }, "port"},
		{"empty listen address", func(c *Config) { c.API.ListenAddr = "" }, "listen address"},
		{"empty binary", func(c *Config) { c.Engine.Binary = "" }, "binary"},
		{"zero introspection timeout", func(c *Config) { c.Engine.IntrospectionTimeout = 0 }, "timeout"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	original := Default()
	original.API.Port = 9999
	original.Engine.Binary = "/opt/zmap/bin/zmap"
	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestGetAPIAddress(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:8080", cfg.GetAPIAddress())
}
