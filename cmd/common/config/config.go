// Package config provides configuration loading for lull.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// EnvPath overrides the config file location.
const EnvPath = "LULL_CONFIG"

// Config represents the lull configuration file structure.
type Config struct {
	// SoundsDir is where relative resource refs and installed packs live.
	SoundsDir string `json:"sounds_dir,omitempty"`
	// Catalog is a file path or http(s) URL. Empty uses the bundled catalog.
	Catalog       string              `json:"catalog,omitempty"`
	Volumes       *VolumeConfig       `json:"volumes,omitempty"`
	SleepPresets  []int               `json:"sleep_presets_minutes,omitempty"`
	Notifications *NotificationConfig `json:"notifications,omitempty"`
	Remote        *RemoteConfig       `json:"remote,omitempty"`
}

// VolumeConfig holds the volumes used before the user adjusts a sound.
type VolumeConfig struct {
	Base    float64 `json:"base"`
	Overlay float64 `json:"overlay"`
}

// NotificationConfig holds settings for desktop notifications.
type NotificationConfig struct {
	Enabled         bool     `json:"enabled"`
	Events          []string `json:"events,omitempty"`
	CooldownSeconds int      `json:"cooldown_seconds,omitempty"`
}

// RemoteConfig holds defaults for the remote control server.
type RemoteConfig struct {
	Addr     string `json:"addr,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SoundsDir: filepath.Join(ConfigDir(), "sounds"),
		Volumes: &VolumeConfig{
			Base:    0.5,
			Overlay: 0.3,
		},
		SleepPresets: []int{5, 10, 15},
		Notifications: &NotificationConfig{
			Enabled:         false,
			Events:          []string{"sleep", "error"},
			CooldownSeconds: 30,
		},
		Remote: &RemoteConfig{
			Addr: ":7420",
		},
	}
}

// ConfigDir returns the lull config directory (~/.lull).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lull")
}

// ConfigPath returns the path to the config file, honoring LULL_CONFIG.
func ConfigPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads the config from ConfigPath.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads the config at path, applying defaults for anything missing.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.SoundsDir == "" {
		c.SoundsDir = defaults.SoundsDir
	}
	c.SoundsDir = expandHome(c.SoundsDir)

	if c.Volumes == nil {
		c.Volumes = defaults.Volumes
	}

	// Presets must be positive minutes
	c.SleepPresets = slices.DeleteFunc(c.SleepPresets, func(m int) bool { return m <= 0 })
	if len(c.SleepPresets) == 0 {
		c.SleepPresets = defaults.SleepPresets
	}

	if c.Notifications == nil {
		c.Notifications = defaults.Notifications
	} else {
		if c.Notifications.CooldownSeconds == 0 {
			c.Notifications.CooldownSeconds = defaults.Notifications.CooldownSeconds
		}
		if len(c.Notifications.Events) == 0 {
			c.Notifications.Events = defaults.Notifications.Events
		}
	}

	if c.Remote == nil {
		c.Remote = defaults.Remote
	} else if c.Remote.Addr == "" {
		c.Remote.Addr = defaults.Remote.Addr
	}
}

// Save saves the config to ConfigPath.
func Save(config *Config) error {
	return SaveTo(ConfigPath(), config)
}

// SaveTo writes the config to path, creating its directory.
func SaveTo(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Matches reports whether notifications are wanted for event.
func (c *NotificationConfig) Matches(event string) bool {
	if c == nil || !c.Enabled {
		return false
	}
	return slices.Contains(c.Events, "*") || slices.Contains(c.Events, event)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
