package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StoreID               string
	AuthSecret            string
	AccessTokenTTLMinutes int
	CatalogFile           string
	TaxRatePercent        float64
	ProductCacheTTL       time.Duration
	LogLevel              string
	LogFormat             string
	MetricsNamespace      string
}

// Load reads configuration from the environment, after an optional .env file.
// Malformed numbers fall back to their defaults; the auth secret never does.
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Config{
		Port:                  valueOrDefault(k.String("PORT"), "8080"),
		AllowedOrigin:         valueOrDefault(k.String("ALLOWED_ORIGIN"), "http://127.0.0.1:3000"),
		DatabaseURL:           strings.TrimSpace(k.String("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(k.String("REDIS_ADDR")),
		RedisPassword:         k.String("REDIS_PASSWORD"),
		RedisDB:               parseInt(k.String("REDIS_DB"), 0, 0),
		StoreID:               valueOrDefault(k.String("DEFAULT_STORE_ID"), "main-store"),
		AuthSecret:            strings.TrimSpace(k.String("AUTH_SECRET")),
		AccessTokenTTLMinutes: parseInt(k.String("ACCESS_TOKEN_TTL_MINUTES"), 480, 1),
		CatalogFile:           strings.TrimSpace(k.String("CATALOG_FILE")),
		TaxRatePercent:        parsePercent(k.String("TAX_RATE_PERCENT")),
		ProductCacheTTL:       time.Duration(parseInt(k.String("PRODUCT_CACHE_TTL_SECONDS"), 60, 1)) * time.Second,
		LogLevel:              valueOrDefault(k.String("LOG_LEVEL"), "info"),
		LogFormat:             valueOrDefault(k.String("LOG_FORMAT"), "json"),
		MetricsNamespace:      valueOrDefault(k.String("METRICS_NAMESPACE"), "lpgpos"),
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseInt(value string, fallback, minimum int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < minimum {
		return fallback
	}
	return n
}

func parsePercent(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 || f > 100 {
		return 0
	}
	return f
}
