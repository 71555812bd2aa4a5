package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort            = "8080"
	DefaultAPIURL          = "http://localhost:5000"
	DefaultIdleTimeout     = 5 * time.Minute
	DefaultUpstreamTimeout = 30 * time.Second
)

type Config struct {
	Port            string
	APIURL          string
	SessionSecret   string
	IdleTimeout     time.Duration
	UpstreamTimeout time.Duration
	DBUrl           string
	RateLimitRPS    float64
	RateLimitBurst  int
	LogLevel        string
	CookieSecure    bool
	AllowedOrigins  []string
}

func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, using environment and defaults")
	}

	cfg := Config{
		Port:          getEnv("PORT", DefaultPort),
		APIURL:        strings.TrimRight(getEnv("API_URL", DefaultAPIURL), "/"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		DBUrl:         os.Getenv("DB_URL"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if cfg.IdleTimeout, err = durationEnv("SESSION_IDLE_TIMEOUT", DefaultIdleTimeout); err != nil {
		return Config{}, err
	}
	if cfg.UpstreamTimeout, err = durationEnv("UPSTREAM_TIMEOUT", DefaultUpstreamTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 10); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 20); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecure, err = boolEnv("COOKIE_SECURE", false); err != nil {
		return Config{}, err
	}
	for _, origin := range strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return f, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return b, nil
}
