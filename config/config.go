// Package config loads user-configurable defaults from
// $XDG_CONFIG_HOME/nova/config.json.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Config holds user-configurable defaults. The OpenAI API key is never stored
// here; it comes from the environment.
type Config struct {
	Model              string `json:"model"`
	SampleIntervalSec  int    `json:"sample_interval_sec"`
	MonitorIntervalSec int    `json:"monitor_interval_sec"`
	DataDir            string `json:"data_dir"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		Model:              "gpt-4o-mini",
		SampleIntervalSec:  30,
		MonitorIntervalSec: 30,
		DataDir:            defaultDataDir(),
	}
}

// Path returns ~/.config/nova/config.json (or XDG_CONFIG_HOME).
// Returns empty string if the home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "nova", "config.json")
}

// Load loads config from disk; returns defaults on error. The OPENAI_MODEL
// environment variable overrides the configured model.
func Load() Config {
	cfg := Default()
	p := Path()
	if p != "" {
		data, err := os.ReadFile(p)
		if err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				log.Printf("nova: warning: config parse error: %v", err)
			}
		}
	}
	if m := os.Getenv("OPENAI_MODEL"); m != "" {
		cfg.Model = m
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	return cfg
}

// Save writes the config to disk.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// APIKey returns the OpenAI API key from the environment, or empty.
func APIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nova")
}
