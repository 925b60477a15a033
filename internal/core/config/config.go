package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Supported database.type values.
const (
	DatabasePostgres = "postgres"
	DatabaseMongoDB  = "mongodb"
	DatabaseMemory   = "memory"
)

// Config represents the top-level application config.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Feed     FeedConfig     `koanf:"feed"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"` // postgres | mongodb | memory
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type FeedConfig struct {
	GlobalLimit  int    `koanf:"global_limit"`
	UserLimit    int    `koanf:"user_limit"` // 0 reads the user's whole history
	DisplayLimit int    `koanf:"display_limit"`
	Timezone     string `koanf:"timezone"`
	CacheTTL     string `koanf:"cache_ttl"` // "0" disables caching
	ProgramsPath string `koanf:"programs_path"`
}

// Location resolves the timezone digest days are cut in.
func (c FeedConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid feed.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// EffectiveCacheTTL parses cache_ttl. A malformed value is rejected by Validate.
func (c FeedConfig) EffectiveCacheTTL() time.Duration {
	ttl, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0
	}
	return ttl
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case DatabasePostgres, DatabaseMongoDB:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for database.type %q", c.Database.Type)
		}
	case DatabaseMemory:
	default:
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	if c.Feed.GlobalLimit <= 0 {
		return fmt.Errorf("feed.global_limit must be > 0")
	}
	if c.Feed.UserLimit < 0 {
		return fmt.Errorf("feed.user_limit must be >= 0")
	}
	if c.Feed.DisplayLimit <= 0 {
		return fmt.Errorf("feed.display_limit must be > 0")
	}
	if _, err := c.Feed.Location(); err != nil {
		return err
	}
	ttl, err := time.ParseDuration(c.Feed.CacheTTL)
	if err != nil {
		return fmt.Errorf("invalid feed.cache_ttl %q: %w", c.Feed.CacheTTL, err)
	}
	if ttl < 0 {
		return fmt.Errorf("feed.cache_ttl must be >= 0")
	}
	if c.Feed.ProgramsPath != "" {
		if _, err := os.Stat(c.Feed.ProgramsPath); err != nil {
			return fmt.Errorf("feed.programs_path %q is not accessible: %w", c.Feed.ProgramsPath, err)
		}
	}

	return nil
}

// Load parses config from defaults, the YAML file and SORTERS_ env vars, then validates it.
// A missing config file is not an error; defaults and env still apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.max_body_size_mb": 1,
		"server.mode":             "release",
		"database.type":           DatabasePostgres,
		"database.dsn":            "postgres://localhost:5432/sorters?sslmode=disable",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"feed.global_limit":       400,
		"feed.user_limit":         0,
		"feed.display_limit":      5,
		"feed.timezone":           "UTC",
		"feed.cache_ttl":          "30s",
		"feed.programs_path":      "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Config file not found, using defaults and environment", "path", configPath)
		} else if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("SORTERS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SORTERS_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
