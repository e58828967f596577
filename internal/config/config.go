// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	ServerPort     int    `envconfig:"SERVER_PORT" default:"8080"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env if present, then the environment. A missing .env file is
// not an error; a missing DATABASE_URL is.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return &cfg, nil
}
