package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfigFile loads configuration from a YAML file on top of the defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in the standard locations.
// Returns empty string if none exists.
func FindConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		"./equirender.yaml",
		"./equirender.yml",
		filepath.Join(home, ".equirender", "config.yaml"),
		filepath.Join(home, ".equirender", "config.yml"),
		"/etc/equirender/config.yaml",
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Load reads path, or the first file found by FindConfigFile when path is
// empty, and falls back to the defaults if there is none.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = FindConfigFile()
	}
	if path == "" {
		return DefaultConfig(), "", nil
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// SaveConfigFile writes cfg as YAML, creating the directory if needed.
func SaveConfigFile(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultHistoryPath is the history database under the user's config directory.
func DefaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "equirender-history.db"
	}
	return filepath.Join(dir, "equirender", "history.db")
}
