package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file name looked up in standard locations.
const FileName = "vf3.yaml"

// Load loads configuration with priority: defaults < file < flags.
// A nil flags value loads defaults and the discovered file only.
func Load(flags *Flags) (*Config, error) {
	// Start with defaults
	cfg := Default()
	if flags == nil {
		flags = &Flags{}
	}

	// Try to load from file (explicit path takes priority)
	configPath := flags.Config
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	flags.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the tables and tuning values are usable.
func (c *Config) Validate() error {
	if c.Assembly.MaxSnap <= 0 {
		return fmt.Errorf("assembly.max_snap must be positive, got %v", c.Assembly.MaxSnap)
	}
	if c.Assembly.TieBand < 0 {
		return fmt.Errorf("assembly.tie_band must not be negative, got %v", c.Assembly.TieBand)
	}
	if c.Assembly.MaxDepth < 1 {
		return fmt.Errorf("assembly.max_depth must be at least 1, got %d", c.Assembly.MaxDepth)
	}
	if _, err := c.ConnectorTable(); err != nil {
		return err
	}
	if _, err := c.BoneSlots(); err != nil {
		return err
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		filepath.Join(".", FileName),
		filepath.Join(ConfigDir(), FileName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "VF3Assembler")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "VF3Assembler")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "vf3")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "vf3")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
