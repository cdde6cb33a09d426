package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

type Config struct {
	Port           string        `env:"PORT" env-default:"8080"`
	Store          string        `env:"STORE" env-default:"mongo"`
	Mongo          MongoConfig
	Redis          RedisConfig
	Geocoder       GeocoderConfig
	JWTSecret      string        `env:"JWT_SECRET" env-default:"your_secret_key"`
	SortLocale     string        `env:"SORT_LOCALE" env-default:"en"`
	RateLimit      float64       `env:"RATE_LIMIT" env-default:"5"`
	RateBurst      int           `env:"RATE_BURST" env-default:"1"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"15s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DB" env-default:"eventdir"`
}

// RedisConfig is optional; an empty address disables the geocode cache and
// moderation notifications.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:""`
	Password string `env:"REDIS_PASSWORD" env-default:""`
}

type GeocoderConfig struct {
	URL       string        `env:"GEOCODER_URL" env-default:"https://nominatim.openstreetmap.org"`
	UserAgent string        `env:"GEOCODER_USER_AGENT" env-default:"eventdir/1.0"`
	CacheTTL  time.Duration `env:"GEOCODE_CACHE_TTL" env-default:"168h"`
	Timeout   time.Duration `env:"GEOCODER_TIMEOUT" env-default:"5s"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) check() error {
	switch c.Store {
	case "mongo", "memory":
	default:
		return fmt.Errorf("STORE must be mongo or memory, got %q", c.Store)
	}
	if _, err := language.Parse(c.SortLocale); err != nil {
		return fmt.Errorf("SORT_LOCALE: %w", err)
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_BURST must be positive")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// Locale is the collation locale for sorted output.
func (c *Config) Locale() language.Tag {
	return language.Make(c.SortLocale)
}
