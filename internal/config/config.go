package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	GinMode         string        `env:"GIN_MODE"`
	Env             string        `env:"ENV" envDefault:"development"`
	CookieMaxAge    time.Duration `env:"COOKIE_MAX_AGE" envDefault:"2h"`
	StaticCacheAge  time.Duration `env:"STATIC_CACHE_AGE" envDefault:"5m"`
	RateLimitRPS    int           `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"10"`
	RateLimiterTTL  time.Duration `env:"RATE_LIMITER_TTL" envDefault:"1h"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"3h"`
	RoundTick       time.Duration `env:"ROUND_TICK" envDefault:"1s"`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"file"`
	DataDir         string        `env:"DATA_DIR" envDefault:"var"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"var/upjguesser.db"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix     string        `env:"REDIS_PREFIX" envDefault:"upjguesser:"`
	LocationsFile   string        `env:"LOCATIONS_FILE" envDefault:"data/locations.json"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func (c *Config) IsProduction() bool {
	return c.GinMode == "release" || c.Env == "production"
}

// Load reads an optional .env file, then the process environment.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 1
	}
	if cfg.RoundTick <= 0 {
		return nil, fmt.Errorf("ROUND_TICK must be positive, got %v", cfg.RoundTick)
	}
	return &cfg, nil
}
