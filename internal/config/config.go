// Package config handles zmapd application configuration. This is the host
// process configuration (API server, engine binary, logging); per-scan
// parameters live in the zmap package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configDirPerm  = 0755
	configFilePerm = 0644

	maxPort = 65535
)

// Config represents the complete zmapd configuration.
type Config struct {
	// API server configuration
	API APIConfig `yaml:"api" json:"api"`

	// Scanning engine configuration
	Engine EngineConfig `yaml:"engine" json:"engine"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port"`

	// HTTP timeouts
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`

	// CORS settings
	EnableCORS  bool     `yaml:"enable_cors" json:"enable_cors"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
}

// EngineConfig holds scanning engine settings.
type EngineConfig struct {
	// Path to the zmap binary. A bare name is resolved via PATH.
	Binary string `yaml:"binary" json:"binary"`

	// Default timeout applied to scan invocations when the caller does
	// not supply one. Zero means no timeout.
	DefaultScanTimeout time.Duration `yaml:"default_scan_timeout" json:"default_scan_timeout"`

	// Timeout for introspection invocations (module and field listing,
	// version queries).
	IntrospectionTimeout time.Duration `yaml:"introspection_timeout" json:"introspection_timeout"`

	// Directory for temporary output, blocklist and allowlist files.
	// Empty means the system default.
	TempDir string `yaml:"temp_dir" json:"temp_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			ListenAddr:   "127.0.0.1",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Minute,
			IdleTimeout:  60 * time.Second,
			EnableCORS:   true,
			CORSOrigins:  []string{"*"},
		},
		Engine: EngineConfig{
			Binary:               "zmap",
			DefaultScanTimeout:   0,
			IntrospectionTimeout: 30 * time.Second,
			TempDir:              "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load loads configuration from a file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		return config, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// YAML is a superset of JSON, so both extensions parse the same way
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > maxPort {
		return fmt.Errorf("API port must be between 1 and %d", maxPort)
	}
	if c.API.ListenAddr == "" {
		return fmt.Errorf("API listen address is required")
	}

	if c.Engine.Binary == "" {
		return fmt.Errorf("engine binary is required")
	}
	if c.Engine.IntrospectionTimeout <= 0 {
		return fmt.Errorf("introspection timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// GetAPIAddress returns the full API address.
func (c *Config) GetAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}
