// Package main is the entry point for the Chapter Attendance Hub worker.
//
// The worker runs periodic maintenance:
// - sweeping attendance records whose owners never checked out
// - reconciling the durable reminder store with in-process timers
//
// It shares the database schema with cmd/server; both can run side by side.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chapterhub/chapter-attendance-hub/config"
	"github.com/chapterhub/chapter-attendance-hub/internal/application/command"
	"github.com/chapterhub/chapter-attendance-hub/internal/application/reminders"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/dispatch"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/messaging"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/persistence/postgres"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/persistence/redis"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/scheduler"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/scheduler/jobs"
	"github.com/chapterhub/chapter-attendance-hub/internal/infrastructure/service"
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
	// 1. Configuration and logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	slog.SetDefault(log)
	log.Info("starting Chapter Attendance Hub worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. PostgreSQL
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
	// 3. Redis (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache *redis.Cache
		guard command.OpenCheckInGuard
	)
	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

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
	// 4. Event bus
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
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Reminder scheduling and the sweep handler
	// ─────────────────────────────────────────────────────────────────────────
	attendanceRepo := postgres.NewAttendanceRepository(dbConn)
	reminderRepo := postgres.NewReminderRepository(dbConn)
	catalog := postgres.NewEventCatalog(dbConn)

	telemetry := service.NewSlogTelemetry(log)
	sender := service.NewResilientSender(service.NewLogSender(log), log)

	timerDispatch := dispatch.NewTimerDispatch(dispatch.Config{Logger: log})
	defer timerDispatch.Close()

	reminderScheduler := reminders.NewScheduler(reminders.Config{
		Reminders: reminderRepo,
		Records:   attendanceRepo,
		Dispatch:  timerDispatch,
		Sender:    sender,
		IDGen:     service.NewIDGenerator(),
		Publisher: eventBus,
		Telemetry: telemetry,
		Logger:    log,
	})
	timerDispatch.SetHandler(reminderScheduler.HandleFire)

	if pruned, err := reminderScheduler.PruneExpired(ctx, time.Now().UTC()); err != nil {
		log.Warn("reminder reconciliation failed", "error", err)
	} else if pruned > 0 {
		log.Info("reconciled reminder store", "pruned", pruned)
	}

	sweepHandler := command.NewSweepMissedHandler(
		attendanceRepo, catalog, reminderScheduler, guard,
		command.NewRecordSerializer(), eventBus, telemetry, log,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Job scheduler
	// ─────────────────────────────────────────────────────────────────────────
	var jobMetrics *scheduler.JobMetrics
	if cfg.Observability.MetricsEnabled {
		jobMetrics = scheduler.NewJobMetrics()
	}

	jobScheduler := scheduler.NewScheduler(scheduler.Config{
		Logger:   log,
		Timezone: cfg.App.Location,
		Metrics:  jobMetrics,
	})

	if cfg.Scheduler.Enabled && cfg.Features.IsEnabled(config.FeatureSweep) {
		sweepJob := jobs.NewSweepMissedCheckoutsJob(sweepHandler, jobs.SweepMissedCheckoutsConfig{
			Cutoff:  cfg.Scheduler.SweepCutoff,
			Timeout: cfg.Scheduler.JobTimeout,
		}, log)
		if err := jobScheduler.Register(sweepJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SweepInterval)); err != nil {
			return fmt.Errorf("failed to register sweep job: %w", err)
		}
	}

	pruneJob := jobs.NewPruneRemindersJob(reminderScheduler, log)
	if err := jobScheduler.Register(pruneJob, scheduler.NewIntervalSchedule(cfg.Scheduler.PruneInterval)); err != nil {
		return fmt.Errorf("failed to register prune job: %w", err)
	}

	if err := jobScheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Metrics endpoint
	// ─────────────────────────────────────────────────────────────────────────
	if jobMetrics != nil {
		mux := http.NewServeMux()
		mux.Handle("GET "+cfg.Observability.MetricsPath,
			promhttp.HandlerFor(jobMetrics.Registry(), promhttp.HandlerOpts{}))

		metricsSrv := &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: mux}
		defer metricsSrv.Close()

		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
		log.Info("metrics endpoint listening",
			"addr", cfg.Observability.MetricsAddr,
			"path", cfg.Observability.MetricsPath,
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	if err := jobScheduler.Stop(); err != nil {
		log.Error("scheduler stop failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
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

	return slog.New(handler).With("app", cfg.App.Name+"-worker")
}
