package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Viishveesh/mediconnect/internal/api"
	"github.com/Viishveesh/mediconnect/internal/booking"
	"github.com/Viishveesh/mediconnect/internal/config"
	"github.com/Viishveesh/mediconnect/internal/database"
	"github.com/Viishveesh/mediconnect/internal/directory"
	"github.com/Viishveesh/mediconnect/internal/export"
	"github.com/Viishveesh/mediconnect/internal/gcal"
	"github.com/Viishveesh/mediconnect/internal/metrics"
	"github.com/Viishveesh/mediconnect/internal/notify"
	"github.com/Viishveesh/mediconnect/internal/reminders"
	"github.com/Viishveesh/mediconnect/internal/slots"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("MEDICONNECT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var sender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.Email.SendGridAPIKey,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		PerSecond: cfg.Email.PerSecond,
	}, logger); sg != nil {
		sender = sg
	} else {
		logger.Warn().Msg("sendgrid api key not set, emails are logged only")
		sender = notify.NewStubSender(logger)
	}
	notifier := notify.NewNotifier(sender, cfg.ConsultationDuration(), logger)

	scheduler := reminders.NewScheduler(notifier, logger)
	dir := directory.New(db)
	booker := booking.NewService(db, dir, notifier, scheduler, logger, cfg.ReminderOffsets()...)
	resolver := slots.NewResolver(db)

	gclient := gcal.NewClient(cfg.Google.CalendarID)
	syncer := gcal.NewSyncer(db, db, gclient, gclient, gcal.NewLocker(rdb), logger)

	exporter := export.NewExporter(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	backup := database.NewBackupService(cfg.Database.Path, database.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		Path:          cfg.Backup.Path,
		IntervalHours: cfg.Backup.IntervalHours,
		RetentionDays: cfg.Backup.RetentionDays,
	}, logger)
	go backup.Start(ctx)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(db, resolver, booker, syncer, exporter, dir, logger)
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxShutdown)
	}()

	logger.Info().Msg("mediconnect scheduling service started")
	if err := server.Start(cfg.Server.Port); err != nil {
		logger.Fatal().Err(err).Msg("http server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctxPing, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctxPing); err != nil {
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
