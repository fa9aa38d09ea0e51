package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config represents the chatscope configuration
type Config struct {
	StorePath      string          `yaml:"store_path"`
	ContactsPath   string          `yaml:"contacts_path"`
	OutputDir      string          `yaml:"output_dir"`
	Timezone       string          `yaml:"timezone"`
	ExportTimezone string          `yaml:"export_timezone"`
	Phone          PhoneConfig     `yaml:"phone"`
	Dashboard      DashboardConfig `yaml:"dashboard"`
	Log            LogConfig       `yaml:"log"`
	Watch          WatchConfig     `yaml:"watch"`
}

// PhoneConfig selects the phone canonicalization rule.
type PhoneConfig struct {
	Rule        string `yaml:"rule"`
	CountryCode string `yaml:"country_code"`
}

// DashboardConfig controls the analytics HTTP surface.
type DashboardConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WatchConfig struct {
	DebounceSeconds int `yaml:"debounce_seconds"`
}

// Phone rules understood by the contacts package.
const (
	PhoneRuleLast10        = "last10"
	PhoneRuleCountryPrefix = "country-prefix"
)

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		StorePath:      "msgstore.db",
		ContactsPath:   "contacts.vcf",
		OutputDir:      "chat_txt_files",
		Timezone:       "Europe/Rome",
		ExportTimezone: "Local",
		Phone: PhoneConfig{
			Rule:        PhoneRuleLast10,
			CountryCode: "39",
		},
		Dashboard: DashboardConfig{Addr: "127.0.0.1:8501"},
		Log:       LogConfig{Level: "info", Format: "console"},
		Watch:     WatchConfig{DebounceSeconds: 2},
	}
}

// withDefaults fills zero values from Default so partial config files work.
func (c *Config) withDefaults() {
	d := Default()
	if c.StorePath == "" {
		c.StorePath = d.StorePath
	}
	if c.ContactsPath == "" {
		c.ContactsPath = d.ContactsPath
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.ExportTimezone == "" {
		c.ExportTimezone = d.ExportTimezone
	}
	if c.Phone.Rule == "" {
		c.Phone.Rule = d.Phone.Rule
	}
	if c.Phone.CountryCode == "" {
		c.Phone.CountryCode = d.Phone.CountryCode
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = d.Dashboard.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Watch.DebounceSeconds <= 0 {
		c.Watch.DebounceSeconds = d.Watch.DebounceSeconds
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Phone.Rule {
	case PhoneRuleLast10, PhoneRuleCountryPrefix:
	default:
		return fmt.Errorf("unknown phone rule %q (want %s or %s)", c.Phone.Rule, PhoneRuleLast10, PhoneRuleCountryPrefix)
	}
	if _, err := LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	if _, err := LoadLocation(c.ExportTimezone); err != nil {
		return fmt.Errorf("invalid export_timezone: %w", err)
	}
	return nil
}

// LoadLocation resolves a time zone name, treating "" and "Local" as time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// GetConfigDir returns the XDG-compliant config directory
func GetConfigDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("CHATSCOPE_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "chatscope"), nil
}

// GetDataDir returns the platform-specific data directory
func GetDataDir() (string, error) {
	if override := os.Getenv("CHATSCOPE_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Chatscope"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatscope"), nil
	}

	return filepath.Join(home, ".local", "share", "chatscope"), nil
}

// Load loads config from the config file
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.withDefaults()

	return &cfg, nil
}

// Save saves the config to the config file
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
