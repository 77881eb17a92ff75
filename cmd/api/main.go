package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kovorka/internal/api"
	"kovorka/internal/authority"
	"kovorka/internal/config"
	"kovorka/internal/domain"
	"kovorka/internal/events"
	"kovorka/internal/export"
	"kovorka/internal/google"
	"kovorka/internal/journal"
	"kovorka/internal/logging"
	"kovorka/internal/metrics"
	"kovorka/internal/notify"
	"kovorka/internal/repository"
	"kovorka/internal/service"
	"kovorka/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	metrics.Register()

	db, err := journal.NewDB(cfg.Journal.Path)
	if err != nil {
		logger.Error().Err(err).Msg("init journal")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	authorityClient := authority.NewClient(cfg.Authority)
	if redisClient != nil && cfg.Authority.CacheTTL > 0 {
		authorityClient.UseRedisCache(redisClient, time.Duration(cfg.Authority.CacheTTL)*time.Second)
	}

	sink := initSheetsSink(ctx, cfg, &logger)

	var syncWorker *worker.SyncWorker
	if sink != nil {
		retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
		syncWorker = worker.NewSyncWorker(db, sink, redisClient, retryPolicy, logger)
		go syncWorker.Start(ctx)
	}

	eventBus := events.NewEventBus()
	initNotifier(cfg, eventBus, &logger)

	sessionTTL := time.Duration(cfg.Booking.SessionTTLSeconds) * time.Second
	sessionRepo := initSessionRepo(redisClient, sessionTTL, &logger)
	sessions := service.NewSessionManager(authorityClient, sessionRepo, sessionTTL, &logger)

	rules := cfg.Booking.WindowRules()
	gate := service.NewEquipmentGate(authorityClient, &logger)

	// The worker is optional; services tolerate a nil enqueue target.
	var enqueue domain.SyncWorker
	if syncWorker != nil {
		enqueue = syncWorker
	}
	lifecycle := service.NewBookingLifecycle(authorityClient, gate, eventBus, db, enqueue, rules, &logger)
	hierarchy := service.NewBookingHierarchy(authorityClient, gate, eventBus, db, enqueue, &logger)
	negotiator := service.NewExtensionNegotiator(authorityClient, eventBus, db, enqueue, rules, &logger)

	exporter := export.NewExporter(db, cfg.Exports.Path, logger)

	httpServer := api.NewHTTPServer(cfg.API, cfg.Booking, sessions, lifecycle, hierarchy, negotiator, gate, db, exporter, logger)

	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.Port).Msg("booking portal started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("booking portal stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}
	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, sessions fall back to memory")
	}
	return client
}

func initSessionRepo(redisClient *redis.Client, ttl time.Duration, logger *zerolog.Logger) domain.SessionRepository {
	fallback := repository.NewMemorySessionRepository(ttl)
	if redisClient == nil {
		return fallback
	}
	primary := repository.NewRedisSessionRepository(redisClient, ttl)
	return repository.NewFailoverSessionRepository(primary, fallback, logger)
}

func initSheetsSink(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsSink {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.JournalSpreadSheetID == "" {
		logger.Info().Msg("Google Sheets sync disabled, credentials not configured")
		return nil
	}

	sink, err := google.NewSheetsSink(cfg.Google.GoogleCredentialsFile, cfg.Google.JournalSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize Google Sheets sink")
		return nil
	}

	if err := sink.TestConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("Google Sheets sink initialized")
	return sink
}

func initNotifier(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		logger.Info().Msg("Telegram notifications disabled")
		return
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram, *logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize Telegram notifier")
		return
	}
	notifier.SubscribeToBus(bus)
	logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("Telegram notifications enabled")
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
