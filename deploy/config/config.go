package config

import (
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Storage    Storage
	HTTPServer HTTPServer
	Source     Source
	Rates      Rates
}

type Storage struct {
	// Backend selects the key-value adapter: redis, postgres or memory.
	Backend string `env:"STORAGE_BACKEND" env-default:"memory"`

	RedisHost     string `env:"REDIS_HOST" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	Timeout  time.Duration `env:"BD_TIMEOUT" env-default:"10s"`
	Host     string        `env:"BD_HOST" env-default:"localhost"`
	Port     int           `env:"BD_PORT" env-default:"5432"`
	User     string        `env:"BD_USER" env-default:"postgres"`
	Password string        `env:"BD_PASSWORD" env-default:""`
	DBName   string        `env:"BD_DBNAME" env-default:"converter"`
	SSLMode  string        `env:"BD_SSL_MODE" env-default:"disable"`
	Schema   string        `env:"BD_SCHEMA" env-default:"dev"`
}

type HTTPServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8082"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"2m"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type Source struct {
	URL     string        `env:"SOURCE_URL" env-default:"https://data-api.ecb.europa.eu/service/data/EXR"`
	Timeout time.Duration `env:"SOURCE_TIMEOUT" env-default:"10s"`
	// RPS throttles outbound requests against the public data API.
	RPS   float64 `env:"SOURCE_RPS" env-default:"4"`
	Burst int     `env:"SOURCE_BURST" env-default:"8"`
}

type Rates struct {
	Supported string        `env:"RATES_CURRENCIES" env-default:"EUR,USD,PLN,GBP,CHF,JPY"`
	Pivot     string        `env:"RATES_PIVOT" env-default:"EUR"`
	CacheTTL  time.Duration `env:"RATES_CACHE_TTL" env-default:"24h"`
	RangeDays int           `env:"RATES_CHART_RANGE_DAYS" env-default:"7"`
}

func NewConfig() *Config {
	cfg := &Config{}

	_ = godotenv.Load(".env")

	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		log.Fatal("Error reading env")
	}

	return cfg
}

// Currencies returns the supported currency codes in configured order.
func (c *Config) Currencies() []string {
	parts := strings.Split(c.Rates.Supported, ",")

	currencies := make([]string, 0, len(parts))
	for _, part := range parts {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code != "" {
			currencies = append(currencies, code)
		}
	}

	return currencies
}
