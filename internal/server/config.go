package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the backend configuration, read from a YAML file with
// SCREENTIME_-prefixed environment overrides.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	DatabasePath    string        `mapstructure:"database_path"`
	LogLevel        string        `mapstructure:"log_level"`
	PairingTokenTTL time.Duration `mapstructure:"pairing_token_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		DatabasePath:    "screentime.db",
		LogLevel:        "info",
		PairingTokenTTL: 15 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadConfig reads the config file at path. An empty path yields the
// defaults plus environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("pairing_token_ttl", cfg.PairingTokenTTL)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)

	v.SetEnvPrefix("SCREENTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read server config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse server config: %w", err)
	}
	return cfg, nil
}
