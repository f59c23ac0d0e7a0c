// Package agentcfg persists the agent-local configuration: backend
// URL, device identity and loop intervals.
package agentcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the agent config file under the data directory.
const ConfigFileName = "agent.yaml"

// Config is the persisted agent-local state. DeviceID and APIKey are
// written once at pairing and only change by re-pairing.
type Config struct {
	BackendURL        string        `mapstructure:"backend_url"`
	DeviceID          string        `mapstructure:"device_id"`
	APIKey            string        `mapstructure:"api_key"`
	PollingInterval   time.Duration `mapstructure:"polling_interval"`
	ReportingInterval time.Duration `mapstructure:"reporting_interval"`
	ClassifierConfig  string        `mapstructure:"classifier_config"`
}

// Defaults returns the config an unpaired agent starts from.
func Defaults() Config {
	return Config{
		BackendURL:        "http://localhost:8080",
		PollingInterval:   5 * time.Second,
		ReportingInterval: 30 * time.Second,
	}
}

// Paired reports whether the agent holds device credentials.
func (c Config) Paired() bool {
	return c.DeviceID != "" && c.APIKey != ""
}

// Load reads the config file under dataDir, applying defaults for
// anything unset. A missing file yields the defaults.
func Load(dataDir string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigFile(filepath.Join(dataDir, ConfigFileName))
	v.SetDefault("backend_url", cfg.BackendURL)
	v.SetDefault("polling_interval", cfg.PollingInterval)
	v.SetDefault("reporting_interval", cfg.ReportingInterval)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read agent config: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse agent config: %w", err)
	}
	return cfg, nil
}

// Save writes the config file with owner-only permissions (it holds
// the api key).
func Save(dataDir string, cfg Config) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	v := viper.New()
	v.Set("backend_url", cfg.BackendURL)
	v.Set("device_id", cfg.DeviceID)
	v.Set("api_key", cfg.APIKey)
	v.Set("polling_interval", cfg.PollingInterval.String())
	v.Set("reporting_interval", cfg.ReportingInterval.String())
	v.Set("classifier_config", cfg.ClassifierConfig)

	path := filepath.Join(dataDir, ConfigFileName)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write agent config: %w", err)
	}
	return os.Chmod(path, 0600)
}

// DefaultDataDir returns the per-user agent data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".screentime"
	}
	return filepath.Join(home, ".screentime")
}
