package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level configuration for the projection store.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Notification NotificationConfig `koanf:"notification"`
	Reader       ReaderConfig       `koanf:"reader"`
	Expiry       ExpiryConfig       `koanf:"expiry"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // "debug" or "release"
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// NotificationConfig holds the change-notification bus settings.
// KindsPath points at a YAML file mapping identity types to notification
// kinds; empty means the built-in mapping.
type NotificationConfig struct {
	Enabled       bool   `koanf:"enabled"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	KindsPath     string `koanf:"kinds_path"`
}

// ReaderConfig holds the paginated read settings.
type ReaderConfig struct {
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`
	// DefaultModifiedSinceOffsetMinutes shifts a caller's modifiedSince
	// threshold back when the caller supplies no offset of its own.
	DefaultModifiedSinceOffsetMinutes int `koanf:"default_modified_since_offset_minutes"`
}

// ExpiryConfig holds the expiry sweeper settings.
type ExpiryConfig struct {
	Enabled       bool   `koanf:"enabled"`
	CheckInterval string `koanf:"check_interval"` // parsed as time.Duration in main
}

// Load loads the configuration from the given file path and environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"server.port":                                  8080,
		"server.host":                                  "0.0.0.0",
		"server.mode":                                  "release",
		"database.dsn":                                 "postgres://localhost:5432/catalog?sslmode=disable",
		"database.max_open_conns":                      25,
		"database.max_idle_conns":                      25,
		"database.auto_migrate":                        true,
		"notification.enabled":                         true,
		"notification.redis_addr":                      "localhost:6379",
		"notification.redis_password":                  "",
		"notification.redis_db":                        0,
		"notification.kinds_path":                      "",
		"reader.default_limit":                         20,
		"reader.max_limit":                             200,
		"reader.default_modified_since_offset_minutes": 30,
		"expiry.enabled":                               true,
		"expiry.check_interval":                        "1m",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// 2. Load from file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 3. Load from Environment Variables
	// CATPROJ_SERVER__PORT=9090 overrides server.port
	if err := k.Load(env.Provider("CATPROJ_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "CATPROJ_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
