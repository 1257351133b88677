package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"soulfriend/internal/ai"
	"soulfriend/internal/bot"
	"soulfriend/internal/config"
	"soulfriend/internal/db"
	"soulfriend/internal/events"
	"soulfriend/internal/google"
	"soulfriend/internal/jobs"
	"soulfriend/internal/metrics"
	"soulfriend/shared/export"
	"soulfriend/shared/reminders"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("SOULFRIEND_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	timezones, err := config.LoadTimezones(os.Getenv("SOULFRIEND_TIMEZONES_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load timezones")
	}

	database, err := db.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var aiClient *ai.Client
	if cfg.AI.Enabled {
		aiClient = ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, logger)
		if rdb != nil && cfg.AI.CacheTTLSeconds > 0 {
			aiClient.UseRedisCache(rdb, time.Duration(cfg.AI.CacheTTLSeconds)*time.Second)
		}
	} else {
		// A client without a key still serves the canned fallbacks.
		aiClient = ai.NewClient("", "", "", logger)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram authorization failed")
	}
	api.Debug = cfg.Telegram.Debug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reminder engine: store -> resolver -> sender -> executor -> scheduler.
	remMetrics := reminders.NewMetrics("soulfriend")
	store := db.NewReminderStore(database)
	resolver := reminders.NewResolver(store, logger)
	notifier := bot.NewTelegramNotifier(api)
	senderCfg := reminders.DefaultSenderConfig()
	if cfg.Sender.Rate > 0 {
		senderCfg.Rate = cfg.Sender.Rate
	}
	if cfg.Sender.Burst > 0 {
		senderCfg.Burst = cfg.Sender.Burst
	}
	sender := reminders.NewSender(notifier, senderCfg, remMetrics, logger)
	executor := reminders.NewExecutor(store, resolver, sender, remMetrics, logger)
	scheduler := reminders.NewScheduler(store, resolver, executor, remMetrics, logger)
	defer scheduler.Stop()

	// Every stored reminder must be live before the first update arrives.
	if err := scheduler.RebuildAll(ctx); err != nil {
		logger.Fatal().Err(err).Msg("reminder rebuild failed")
	}

	bus := events.NewEventBus()
	// Every domain event leaves a durable audit_log row.
	bus.SubscribeAll(events.Types(), func(e events.Event) error {
		return database.LogAction(ctx, e.OwnerID, e.Type, e.Details)
	})

	exporter := export.NewService(database, export.NewExcelizeWriter, logger)

	b, err := bot.New(api, cfg, database, scheduler, aiClient, exporter, bus, timezones, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	if cfg.Backup.Enabled {
		backup := db.NewBackupService(cfg.Database.Path, db.BackupConfig{
			Enabled:       true,
			StoragePath:   cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, logger)
		go backup.Start(ctx)
	}

	var sheets *google.SheetsService
	if cfg.Google.Enabled {
		sheets, err = google.NewSheetsService(ctx, cfg.Google.CredentialsPath, cfg.Google.SpreadsheetID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("google sheets init failed")
		}
	}

	runner := jobs.NewRunner(jobs.Jobs(jobs.Deps{
		DB:     database,
		AI:     aiClient,
		Sender: sender,
		Sheets: sheets,
		Bus:    bus,
		Logger: logger,
	}), logger)
	go runner.Start(ctx)
	defer runner.Stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	logger.Info().
		Int("reminders", scheduler.TotalRegistrations()).
		Msg("soulfriend bot started")
	b.Start(ctx)
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger zerolog.Logger) {
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
