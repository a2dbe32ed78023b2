package main

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/farewatch/farewatch/internal/database"
)

// appConfig holds the monitor's environment-driven configuration.
type appConfig struct {
	Port          string
	LogLevel      string
	CheckInterval time.Duration
	Concurrency   int

	AmadeusAPIKey     string
	AmadeusAPISecret  string
	AmadeusProduction bool

	TelegramBotToken string
	TelegramTestEnv  bool

	// PreferencesBackend selects the store: "file", "postgres" or "memory".
	PreferencesBackend string
	PreferencesDir     string

	// Database is only used with the postgres backend.
	Database database.Config

	// RedisAddr enables the search cache when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// StopScopePerLeg applies stop preferences to each direction of a round
	// trip instead of the summed count.
	StopScopePerLeg bool
}

func loadConfig() (appConfig, error) {
	cfg := appConfig{
		Port:               getEnv("APP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AmadeusAPIKey:      os.Getenv("AMADEUS_API_KEY"),
		AmadeusAPISecret:   os.Getenv("AMADEUS_API_SECRET"),
		AmadeusProduction:  os.Getenv("AMADEUS_ENVIRONMENT") == "production",
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramTestEnv:    os.Getenv("TELEGRAM_USE_TEST_ENVIRONMENT") == "true",
		PreferencesBackend: getEnv("PREFERENCES_BACKEND", "file"),
		PreferencesDir:     getEnv("PREFERENCES_DIR", "data/preferences"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		StopScopePerLeg:    os.Getenv("STOP_SCOPE") == "per_itinerary",
	}

	if cfg.AmadeusAPIKey == "" || cfg.AmadeusAPISecret == "" {
		return appConfig{}, errors.New("AMADEUS_API_KEY and AMADEUS_API_SECRET are required")
	}
	if cfg.TelegramBotToken == "" {
		return appConfig{}, errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	interval, err := time.ParseDuration(getEnv("CHECK_INTERVAL", "1h"))
	if err != nil || interval <= 0 {
		return appConfig{}, errors.New("CHECK_INTERVAL must be a positive duration")
	}
	cfg.CheckInterval = interval

	cfg.Concurrency, _ = strconv.Atoi(getEnv("CHECK_CONCURRENCY", "4"))
	cfg.RedisDB, _ = strconv.Atoi(getEnv("REDIS_DB", "0"))

	switch cfg.PreferencesBackend {
	case "file", "postgres", "memory":
	default:
		return appConfig{}, errors.New("PREFERENCES_BACKEND must be file, postgres or memory")
	}

	cfg.Database = database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		User:     getEnv("DB_USER", "farewatch"),
		Password: getEnv("DB_PASSWORD", "localdev"),
		Database: getEnv("DB_NAME", "farewatch"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
	cfg.Database.Port, _ = strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxConns, _ := strconv.Atoi(getEnv("DB_MAX_CONNS", "10"))
	minConns, _ := strconv.Atoi(getEnv("DB_MIN_CONNS", "2"))
	cfg.Database.MaxConns = int32(maxConns)
	cfg.Database.MinConns = int32(minConns)
	cfg.Database.ConnLifetime, _ = time.ParseDuration(getEnv("DB_CONN_LIFETIME", "5m"))

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
