// Package config handles server configuration loading and validation.
// Uses standard library encoding/json for simplicity and reliability.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Store backend selectors.
const (
	StorePostgres = "postgres"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

// Config is the server configuration file.
type Config struct {
	ListenAddr  string `json:"listenAddr"`
	DatabaseURL string `json:"databaseUrl"`
	ContentDir  string `json:"contentDir"`
	LogLevel    string `json:"logLevel"`
	Store       string `json:"store"`
	StatePath   string `json:"statePath"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		ContentDir: "content",
		LogLevel:   "info",
		Store:      StoreMemory,
		StatePath:  "state/echoes.json",
	}
}

// Load reads and validates a configuration file, applying defaults for
// omitted fields.
func Load(path string) (*Config, error) {
	logrus.WithFields(logrus.Fields{
		"path": path,
	}).Info("Loading configuration file")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"listenAddr": cfg.ListenAddr,
		"contentDir": cfg.ContentDir,
		"store":      cfg.Store,
	}).Info("Configuration loaded successfully")

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("store %q requires databaseUrl", c.Store)
		}
	case StoreFile:
		if c.StatePath == "" {
			return fmt.Errorf("store %q requires statePath", c.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid logLevel %q: %w", c.LogLevel, err)
	}
	if c.ContentDir == "" {
		return fmt.Errorf("contentDir is required")
	}
	return nil
}
