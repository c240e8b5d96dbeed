package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Default returns the built-in configuration.
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse default config: %w", err)
	}
	return &cfg, nil
}

// DefaultPath returns ~/.newshound/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".newshound", "config.yaml"), nil
}

// Load reads the configuration file at path over the built-in defaults.
// Settings missing from the file keep their default; a sources or entities
// list in the file replaces the default list. An empty path means
// DefaultPath, which may be absent. The result is not validated.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		if path, err = DefaultPath(); err != nil {
			return cfg, nil
		}
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, nil // No user config -- not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Lists in the file replace the default lists; other fields merge
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}
