package http

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withObservability wraps a route handler with request logging and metrics.
// The route label is the registered pattern, not the raw URL, to keep metric
// cardinality bounded.
func (s *Server) withObservability(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if s.metrics != nil {
			s.metrics.requestsInFlight.Inc()
			defer s.metrics.requestsInFlight.Dec()
		}

		next(rec, r)

		duration := time.Since(start)
		if s.metrics != nil {
			s.metrics.observeRequest(r.Method, route, rec.status, duration)
		}

		level := slog.LevelInfo
		if rec.status >= 500 {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration", duration.String(),
		)
	}
}
