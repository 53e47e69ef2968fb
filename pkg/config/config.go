// Package config handles Bifrost configuration via YAML files and
// environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags
//  2. Environment variables (BIFROST_*)
//  3. Config file (bifrost.yaml)
//  4. Built-in defaults
//
// Environment Variables:
//   - BIFROST_DATA_DIR="./data"
//   - BIFROST_IN_MEMORY=true
//   - BIFROST_SYNC_WRITES=true
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all Bifrost configuration.
type Config struct {
	// DataDir is the directory the storage engine persists to.
	DataDir string `yaml:"data_dir"`

	// InMemory keeps the whole store in RAM. Data is lost on shutdown.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool `yaml:"sync_writes"`
}

// LoadDefaults returns the built-in defaults.
func LoadDefaults() *Config {
	return &Config{
		DataDir: "./data",
	}
}

// LoadFromFile loads configuration with full precedence: defaults, then the
// YAML file (if path is non-empty), then environment variables.
func LoadFromFile(path string) (*Config, error) {
	cfg := LoadDefaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvVars(cfg)
	return cfg, nil
}

// LoadFromEnv returns defaults overridden by environment variables only.
func LoadFromEnv() *Config {
	cfg := LoadDefaults()
	applyEnvVars(cfg)
	return cfg
}

// FindConfigFile returns the first config file that exists among the
// conventional locations, or "" when none does.
func FindConfigFile() string {
	candidates := []string{
		"bifrost.yaml",
		"bifrost.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".bifrost", "bifrost.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Validate checks the configuration for conflicting or missing settings.
func (c *Config) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("data_dir is required unless in_memory is set")
	}
	return nil
}

func applyEnvVars(cfg *Config) {
	if v := os.Getenv("BIFROST_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BIFROST_IN_MEMORY"); v != "" {
		cfg.InMemory = parseBool(v, cfg.InMemory)
	}
	if v := os.Getenv("BIFROST_SYNC_WRITES"); v != "" {
		cfg.SyncWrites = parseBool(v, cfg.SyncWrites)
	}
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}
