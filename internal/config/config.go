package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"8080"`
	DBDSN        string `env:"DB_DSN" envDefault:"threadline.db"`
	MediaDir     string `env:"MEDIA_DIR" envDefault:"./web/media"`
	TemplatesDir string `env:"TEMPLATES_DIR" envDefault:"./web/templates"`
	LogFile      string `env:"LOG_FILE" envDefault:"./threadline.log"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	// Empty keeps the category tree snapshot in process memory.
	RedisURL         string        `env:"REDIS_URL"`
	CategoryCacheTTL time.Duration `env:"CATEGORY_CACHE_TTL" envDefault:"5m"`

	SearchDebounce   time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"400ms"`
	VariantKeepEdits bool          `env:"VARIANT_KEEP_EDITS" envDefault:"true"`
	AdminPageSize    int           `env:"ADMIN_PAGE_SIZE" envDefault:"25"`
	CookieSecure     bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// Addr is the listen address for fiber.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("parse config: PORT %d out of range", cfg.Port)
	}
	if cfg.AdminPageSize < 1 || cfg.AdminPageSize > 200 {
		return Config{}, fmt.Errorf("parse config: ADMIN_PAGE_SIZE %d out of range", cfg.AdminPageSize)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("parse config: unknown LOG_LEVEL %q", cfg.LogLevel)
	}
	if cfg.CategoryCacheTTL <= 0 {
		cfg.CategoryCacheTTL = 5 * time.Minute
	}

	log.Printf("[config] PORT=%d DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s LOG_LEVEL=%s REDIS=%t",
		cfg.Port, cfg.DBDSN, cfg.MediaDir, cfg.LogFile, cfg.LogLevel, cfg.RedisURL != "")
	return cfg, nil
}
