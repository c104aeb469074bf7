// Package config loads process settings from the environment and the
// immutable policy catalog from Go defaults plus an optional YAML overlay.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the simulation server's process configuration.
type Config struct {
	DBPath       string        `env:"HEGEMON_DB_PATH" envDefault:"data/hegemon.db"`
	APIPort      int           `env:"HEGEMON_API_PORT" envDefault:"8080"`
	AdminKey     string        `env:"HEGEMON_ADMIN_KEY"`
	RelayKey     string        `env:"HEGEMON_RELAY_KEY"` // Gates the websocket feed when set
	Seed         uint64        `env:"HEGEMON_SEED" envDefault:"42"`
	Difficulty   string        `env:"HEGEMON_DIFFICULTY" envDefault:"normal"`
	CatalogPath  string        `env:"HEGEMON_CATALOG"`
	TickInterval time.Duration `env:"HEGEMON_TICK_INTERVAL" envDefault:"1s"`
	Speed        int           `env:"HEGEMON_SPEED" envDefault:"1"`
	Era          int           `env:"HEGEMON_ERA" envDefault:"0"`
	RandomOrgKey string        `env:"RANDOM_ORG_API_KEY"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:","`
	LogLevel     slog.Level    `env:"HEGEMON_LOG_LEVEL" envDefault:"info"`
}

// StewardConfig configures the steward process.
type StewardConfig struct {
	APIURL     string        `env:"HEGEMON_API_URL" envDefault:"http://localhost:8080"`
	AdminKey   string        `env:"HEGEMON_ADMIN_KEY"`
	Interval   time.Duration `env:"STEWARD_INTERVAL" envDefault:"1m"`
	MemoryPath string        `env:"STEWARD_MEMORY" envDefault:"steward_memory.json"`
	LogLevel   slog.Level    `env:"HEGEMON_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the server configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return Config{}, fmt.Errorf("HEGEMON_API_PORT %d out of range", cfg.APIPort)
	}
	if cfg.Speed < 1 {
		return Config{}, fmt.Errorf("HEGEMON_SPEED must be at least 1, got %d", cfg.Speed)
	}
	if cfg.Era < 0 {
		return Config{}, fmt.Errorf("HEGEMON_ERA must not be negative, got %d", cfg.Era)
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("HEGEMON_TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	return cfg, nil
}

// LoadSteward parses the steward configuration.
func LoadSteward() (StewardConfig, error) {
	var cfg StewardConfig
	if err := ParseEnv(&cfg); err != nil {
		return StewardConfig{}, err
	}
	if cfg.Interval <= 0 {
		return StewardConfig{}, fmt.Errorf("STEWARD_INTERVAL must be positive, got %s", cfg.Interval)
	}
	return cfg, nil
}
