// Package http exposes the attendance core over a JSON HTTP API.
// MemberID is always explicit in requests; the API carries no session state.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chapterhub/chapter-attendance-hub/internal/application/command"
	"github.com/chapterhub/chapter-attendance-hub/internal/application/query"
	"github.com/chapterhub/chapter-attendance-hub/internal/application/reminders"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Pinger reports the health of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config contains configuration for the HTTP server.
type Config struct {
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MetricsEnabled mounts /metrics when true.
	MetricsEnabled bool
	MetricsPath    string

	Logger *slog.Logger
}

// Dependencies bundles the application handlers the API fronts.
type Dependencies struct {
	CheckIn  *command.CheckInHandler
	CheckOut *command.CheckOutHandler
	History  *query.GetHistoryHandler
	Streak   *query.GetStreakHandler
	Upcoming *query.GetUpcomingHandler

	Reminders   *reminders.Scheduler
	ReminderCfg reminder.Config

	Records attendance.Repository
	Catalog attendance.EventCatalog

	// Pingers are checked by /healthz.
	Pingers []Pinger
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *Metrics

	checkIn  *command.CheckInHandler
	checkOut *command.CheckOutHandler
	history  *query.GetHistoryHandler
	streak   *query.GetStreakHandler
	upcoming *query.GetUpcomingHandler

	reminders   *reminders.Scheduler
	reminderCfg reminder.Config
	records     attendance.Repository
	catalog     attendance.EventCatalog

	pingers []Pinger
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(cfg Config, deps Dependencies) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	s := &Server{
		logger:      cfg.Logger,
		checkIn:     deps.CheckIn,
		checkOut:    deps.CheckOut,
		history:     deps.History,
		streak:      deps.Streak,
		upcoming:    deps.Upcoming,
		reminders:   deps.Reminders,
		reminderCfg: deps.ReminderCfg,
		records:     deps.Records,
		catalog:     deps.Catalog,
		pingers:     deps.Pingers,
	}

	if cfg.MetricsEnabled {
		s.metrics = NewMetrics()
	}

	mux := http.NewServeMux()
	s.routes(mux, cfg)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) routes(mux *http.ServeMux, cfg Config) {
	mux.HandleFunc("POST /v1/checkins", s.withObservability("/v1/checkins", s.handleCheckIn))
	mux.HandleFunc("POST /v1/checkins/{id}/checkout", s.withObservability("/v1/checkins/{id}/checkout", s.handleCheckOut))

	mux.HandleFunc("GET /v1/members/{id}/history", s.withObservability("/v1/members/{id}/history", s.handleHistory))
	mux.HandleFunc("GET /v1/members/{id}/streak", s.withObservability("/v1/members/{id}/streak", s.handleStreak))
	mux.HandleFunc("GET /v1/members/{id}/upcoming", s.withObservability("/v1/members/{id}/upcoming", s.handleUpcoming))

	mux.HandleFunc("POST /v1/reminders/schedule", s.withObservability("/v1/reminders/schedule", s.handleScheduleReminders))
	mux.HandleFunc("DELETE /v1/reminders/{recordID}", s.withObservability("/v1/reminders/{recordID}", s.handleCancelReminders))

	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.metrics != nil {
		mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
}

// Start begins serving. It blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
