// Package main provides the entrypoint for the farewatch deal monitor.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/farewatch/farewatch/internal/database"
	"github.com/farewatch/farewatch/internal/deal"
	"github.com/farewatch/farewatch/internal/flight/amadeus"
	"github.com/farewatch/farewatch/internal/monitor"
	"github.com/farewatch/farewatch/internal/notify/telegram"
	"github.com/farewatch/farewatch/internal/preferences"
	"github.com/farewatch/farewatch/internal/resilience"
	"github.com/farewatch/farewatch/internal/searchcache"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// cycleStatus publishes the latest cycle result to the status endpoint.
type cycleStatus struct {
	mu   sync.RWMutex
	last *monitor.CycleResult
}

func (s *cycleStatus) record(result monitor.CycleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &result
}

func (s *cycleStatus) snapshot() *monitor.CycleResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func main() {
	const serviceName = "farewatch-monitor"

	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := loadConfig()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, parseErr := zerolog.ParseLevel(cfg.LogLevel); parseErr == nil {
		log = log.Level(level)
	}

	log.Info().
		Str("build_time", BuildTime).
		Dur("check_interval", cfg.CheckInterval).
		Str("preferences_backend", cfg.PreferencesBackend).
		Msg("starting farewatch monitor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Preferences store
	var repo preferences.Repository
	switch cfg.PreferencesBackend {
	case "postgres":
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		repo = preferences.NewPostgresRepository(pool)
		log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.Database).Msg("database connected")
	case "memory":
		repo = preferences.NewInMemoryRepository()
		log.Warn().Msg("using in-memory preferences store, data will not survive restarts")
	default:
		if err := os.MkdirAll(cfg.PreferencesDir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.PreferencesDir).Msg("failed to create preferences directory")
		}
		repo = preferences.NewFileRepository(cfg.PreferencesDir)
		log.Info().Str("dir", cfg.PreferencesDir).Msg("using file preferences store")
	}

	// Search cache
	var cache searchcache.Cache = searchcache.NewNoOpCache()
	if cfg.RedisAddr != "" {
		redisCache, err := searchcache.NewRedisCache(searchcache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Logger:   log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		cache = redisCache
		log.Info().Str("addr", cfg.RedisAddr).Msg("search cache enabled")
	}

	// Upstream clients
	amadeusBaseURL := amadeus.DefaultBaseURL
	if cfg.AmadeusProduction {
		amadeusBaseURL = amadeus.ProductionBaseURL
	}
	amadeusHTTP := resilience.NewClient(resilience.ClientConfig{Name: amadeus.SourceName})
	searcher := amadeus.NewClient(amadeus.ClientConfig{
		APIKey:     cfg.AmadeusAPIKey,
		APISecret:  cfg.AmadeusAPISecret,
		BaseURL:    amadeusBaseURL,
		HTTPClient: amadeusHTTP,
		Logger:     log,
	})

	telegramHTTP := resilience.NewClient(resilience.ClientConfig{Name: "telegram"})
	notifier := telegram.NewNotifier(telegram.Config{
		BotToken:           cfg.TelegramBotToken,
		UseTestEnvironment: cfg.TelegramTestEnv,
		HTTPClient:         telegramHTTP,
		Logger:             log,
	})

	stopScope := deal.StopScopeSummed
	if cfg.StopScopePerLeg {
		stopScope = deal.StopScopePerItinerary
	}
	checker := monitor.NewMonitor(monitor.Config{
		Repository:  repo,
		Searcher:    searcher,
		Evaluator:   deal.NewEvaluator(deal.Config{StopScope: stopScope}),
		Notifier:    notifier,
		Cache:       cache,
		Concurrency: cfg.Concurrency,
		Logger:      log,
	})

	status := &cycleStatus{}

	// Status server
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})
	router.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"last_cycle": status.snapshot(),
			"breakers": map[string]string{
				amadeus.SourceName: amadeusHTTP.BreakerState().String(),
				"telegram":         telegramHTTP.BreakerState().String(),
			},
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("status server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server failed")
		}
	}()

	// Check loop: one cycle at startup, then on every tick.
	go func() {
		status.record(checker.RunCycle(ctx))

		ticker := time.NewTicker(cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status.record(checker.RunCycle(ctx))
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status server forced to shut down")
	}
	log.Info().Msg("monitor stopped")
}
