package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment.
type Config struct {
	// Accounts persistence: "sqlite" or "toml".
	StoreBackend string `env:"TWP_STORE" envDefault:"sqlite"`
	DatabasePath string `env:"TWP_DB_PATH" envDefault:"./data/accounts.db"`
	AccountsPath string `env:"TWP_ACCOUNTS_PATH"` // toml backend; empty means ~/.twitterpool/accounts.toml

	// Scraper backend
	ScraperBaseURL string        `env:"TWP_SCRAPER_URL" envDefault:"http://127.0.0.1:8880"`
	ScraperTimeout time.Duration `env:"TWP_SCRAPER_TIMEOUT" envDefault:"30s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load reads the environment, honoring a .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.StoreBackend {
	case "sqlite", "toml":
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}

	return cfg, nil
}
