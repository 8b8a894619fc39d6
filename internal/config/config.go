// Package config loads the runtime's on-disk configuration file: which
// vendor profile to emulate, where resources live, and logging/runtime
// knobs that would otherwise have to be repeated on every command line.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vendor identifies which platform profile an app should be run under.
type Vendor string

const (
	VendorKTF Vendor = "ktf"
	VendorLGT Vendor = "lgt"
	VendorSKT Vendor = "skt"
)

// Config is the top-level shape of a wie.yaml file.
type Config struct {
	Vendor    Vendor `yaml:"vendor"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "console" or "json"
	ScreenW   int    `yaml:"screen_width"`
	ScreenH   int    `yaml:"screen_height"`
	SaveDir   string `yaml:"save_dir"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Vendor:    VendorKTF,
		LogLevel:  "info",
		LogFormat: "console",
		ScreenW:   240,
		ScreenH:   320,
		SaveDir:   ".wie",
	}
}

// Load reads and parses path, filling any field the file omits with the
// default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
