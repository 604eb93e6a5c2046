package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printerpricewatch/config"
	"printerpricewatch/internal/currency"
	"printerpricewatch/internal/report"
	"printerpricewatch/internal/scraper"
	"printerpricewatch/logger"
	"printerpricewatch/services/cache"
	"printerpricewatch/services/history"
	"printerpricewatch/services/publisher"
	"printerpricewatch/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	stores, err := config.LoadStores(cfg.StoresFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid store configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("stores_file", cfg.StoresFile).
		Int("pairs", config.EnabledPairs(stores)).
		Msg("Starting price check run")

	// Set up context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Fetch the exchange rate once per run and pass it explicitly
	converter := currency.NewConverter(cfg.DataDir, cfg.RequestTimeout)
	rate := converter.Rate(ctx)
	log.Info().
		Float64("usd_to_aud", rate.Rate).
		Str("source", rate.Source).
		Bool("degraded", rate.Degraded).
		Msg("Exchange rate ready")

	checker := scraper.NewPriceScraper(cfg, services.Cache, rate)
	w := worker.NewWorker(checker, services.Recorder, services.Publisher, cfg.Concurrency)

	start := time.Now()
	records := w.Run(ctx, stores)

	if err := services.Recorder.WriteSnapshot(records); err != nil {
		log.Error().Err(err).Msg("Failed to write latest snapshot")
	}

	summary := report.Build(records)
	fmt.Println(summary.Render())

	log.Info().
		Int("ok", summary.Successes).
		Int("failed", summary.Failures).
		Dur("elapsed", time.Since(start)).
		Msg("Run complete")

	// Partial per-entry failures still exit 0; only fatal setup errors
	// (handled above) are non-zero.
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Recorder  history.Recorder
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Recorder != nil {
		s.Recorder.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg config.Config) (*Services, error) {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	} else {
		services.Cache = cache.NewMemoryService()
	}

	recorder, err := history.NewCSVRecorder(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	services.Recorder = recorder

	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		services.Publisher = publisher.Noop{}
	}

	return services, nil
}
