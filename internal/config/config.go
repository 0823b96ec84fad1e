package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

type Config struct {
	LogLevel    string        `json:"log_level"`
	MetricsAddr string        `json:"metrics_addr"` // empty disables the endpoint
	Capture     CaptureConfig `json:"capture"`
	Meter       MeterConfig   `json:"meter"`
	Effects     EffectsConfig `json:"effects"`
}

type CaptureConfig struct {
	Device        string `json:"device"`
	SampleRate    int    `json:"sample_rate"`
	TimesliceMS   int    `json:"timeslice_ms"`
	PreferredType string `json:"preferred_type"`
	BitrateHint   int    `json:"bitrate_hint"`
}

type MeterConfig struct {
	CadenceMS int `json:"cadence_ms"`
}

type EffectsConfig struct {
	Initial     string `json:"initial"` // "none", "reverb", "echo", ...
	PresetsPath string `json:"presets_path"`
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := configPath()

	// Default config
	cfg := &Config{
		LogLevel:    "info",
		MetricsAddr: "",
		Capture: CaptureConfig{
			Device:        "",
			SampleRate:    0, // Device default
			TimesliceMS:   500,
			PreferredType: "",
			BitrateHint:   0,
		},
		Meter: MeterConfig{
			CadenceMS: 100,
		},
		Effects: EffectsConfig{
			Initial:     "none",
			PresetsPath: "",
		},
	}

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "mictape", "config.json")
}
