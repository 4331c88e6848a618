// Package main is the entry point for the Chapter Attendance Hub API server.
//
// The server exposes the attendance core over HTTP: check-in, check-out,
// history, streaks, upcoming events, and reminder management. Background
// maintenance (the missed-checkout sweep) runs in cmd/worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/config"
	"github.com/chapterhub/chapter-attendance-hub/internal/application/command"
	"github.com/chapterhub/chapter-attendance-hub/internal/application/query"
	"github.com/chapterhub/chapter-attendance-hub/internal/application/reminders"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/dispatch"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/messaging"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/persistence/postgres"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/persistence/redis"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/service"
	httpapi "github.com/chapterhub/chapter-attendance-hub/internal/interface/http"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	slog.SetDefault(log)
	log.Info("starting Chapter Attendance Hub API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if cfg.Database.AutoMigrate {
		log.Info("checking database migrations...")
		if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Redis (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache *redis.Cache
		guard command.OpenCheckInGuard
	)
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, check-in guard disabled", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			guard = redis.NewCheckInGuard(cache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Event bus
	// ─────────────────────────────────────────────────────────────────────────
	var eventBus shared.EventBus
	if cache != nil {
		eventBus, err = messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client: cache.Client(),
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("failed to start event bus: %w", err)
		}
	} else {
		busCfg := messaging.DefaultInMemoryEventBusConfig()
		busCfg.Logger = log
		eventBus = messaging.NewInMemoryEventBus(busCfg)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Repositories and services
	// ─────────────────────────────────────────────────────────────────────────
	attendanceRepo := postgres.NewAttendanceRepository(dbConn)
	reminderRepo := postgres.NewReminderRepository(dbConn)
	catalog := postgres.NewEventCatalog(dbConn)

	idgen := service.NewIDGenerator()
	telemetry := service.NewSlogTelemetry(log)
	progress := service.NewDegreeProgressStub(log)
	sender := service.NewResilientSender(service.NewLogSender(log), log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Reminder scheduling
	// ─────────────────────────────────────────────────────────────────────────
	timerDispatch := dispatch.NewTimerDispatch(dispatch.Config{Logger: log})
	defer timerDispatch.Close()

	reminderScheduler := reminders.NewScheduler(reminders.Config{
		Reminders: reminderRepo,
		Records:   attendanceRepo,
		Dispatch:  timerDispatch,
		Sender:    sender,
		IDGen:     idgen,
		Publisher: eventBus,
		Telemetry: telemetry,
		Logger:    log,
	})
	timerDispatch.SetHandler(reminderScheduler.HandleFire)

	reminderCfg := reminderConfigFrom(cfg)

	// Reconcile the durable reminder store with the empty timer registry:
	// retire reminders that expired while the process was down and re-register
	// timers for the rest.
	if pruned, err := reminderScheduler.PruneExpired(ctx, time.Now().UTC()); err != nil {
		log.Warn("reminder reconciliation failed", "error", err)
	} else if pruned > 0 {
		log.Info("reconciled reminder store", "pruned", pruned)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	table := attendance.DefaultPointsTable()
	serializer := command.NewRecordSerializer()

	checkIn := command.NewCheckInHandler(
		attendanceRepo, catalog, reminderScheduler, guard,
		idgen, eventBus, telemetry, log, reminderCfg,
	)
	checkOut := command.NewCheckOutHandler(
		attendanceRepo, reminderScheduler, guard, serializer,
		table, progress, eventBus, telemetry, log,
	)

	history := query.NewGetHistoryHandler(attendanceRepo)
	streak := query.NewGetStreakHandler(attendanceRepo)
	if cache != nil && cfg.Features.IsEnabled(config.FeatureStreakCache) {
		streak = streak.WithCache(redis.NewStreakCache(cache, log))
	}
	upcoming := query.NewGetUpcomingHandler(catalog, table)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	pingers := []httpapi.Pinger{dbConn}
	if cache != nil {
		pingers = append(pingers, cache)
	}

	server := httpapi.NewServer(httpapi.Config{
		Addr:           cfg.HTTP.Addr(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MetricsEnabled: cfg.Observability.MetricsEnabled,
		MetricsPath:    cfg.Observability.MetricsPath,
		Logger:         log,
	}, httpapi.Dependencies{
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		History:     history,
		Streak:      streak,
		Upcoming:    upcoming,
		Reminders:   reminderScheduler,
		ReminderCfg: reminderCfg,
		Records:     attendanceRepo,
		Catalog:     catalog,
		Pingers:     pingers,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// reminderConfigFrom maps environment configuration onto the domain reminder
// plan, honoring feature flags.
func reminderConfigFrom(cfg *config.Config) reminder.Config {
	return reminder.Config{
		Enabled:          cfg.Reminders.Enabled && cfg.Features.IsEnabled(config.FeatureReminders),
		CheckoutOffsets:  cfg.Reminders.CheckoutOffsets,
		Motivation:       cfg.Reminders.Motivation && cfg.Features.IsEnabled(config.FeatureReminderMotivation),
		MotivationOffset: cfg.Reminders.MotivationOffset,
		DeadlineAlert:    cfg.Reminders.DeadlineAlert && cfg.Features.IsEnabled(config.FeatureReminderDeadline),
		DeadlineOffset:   cfg.Reminders.DeadlineOffset,
	}
}

// setupLogger configures structured logging per the observability settings.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" || cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("app", cfg.App.Name)
}
