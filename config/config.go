/*
Package config handles server configuration with validation.

PURPOSE:
  Loads the YAML configuration for the inventory server, applies defaults,
  and validates the result before anything is wired up. Flags in
  cmd/server may override individual fields after loading.

FILE SHAPE:
  server:
    port: 8080
    allowed_origins: ["http://localhost:5173"]
  storage:
    backend: file        # file | sqlite
    path: ./data/inventory.json
    keep_history: 10     # sqlite only
  logging:
    level: info

SEE ALSO:
  - cmd/server/main.go: Consumer of this package
*/
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by StorageConfig.Backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig selects and parameterizes the save-document backend.
type StorageConfig struct {
	Backend     string `yaml:"backend"`      // file | sqlite
	Path        string `yaml:"path"`         // file path or sqlite database path
	KeepHistory int    `yaml:"keep_history"` // sqlite: generations retained by prune
}

// LoggingConfig contains log settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Storage: StorageConfig{
			Backend:     BackendFile,
			Path:        "inventory.json",
			KeepHistory: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path, layers it over the defaults, and validates. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend %q must be %q or %q", c.Storage.Backend, BackendFile, BackendSQLite)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Storage.KeepHistory < 1 {
		return fmt.Errorf("storage.keep_history must be at least 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q unknown", c.Logging.Level)
	}
	return nil
}
