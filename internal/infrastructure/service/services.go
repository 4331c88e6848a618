// Package service provides small infrastructure adapters behind the domain
// interfaces: ID generation, telemetry, degree progress, and reminder delivery.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
	"github.com/chapterhub/chapter-attendance-hub/pkg/circuitbreaker"
	"github.com/chapterhub/chapter-attendance-hub/pkg/retry"
)

// IDGeneratorImpl implements attendance.IDGenerator with UUIDs.
type IDGeneratorImpl struct{}

func NewIDGenerator() *IDGeneratorImpl {
	return &IDGeneratorImpl{}
}

func (g *IDGeneratorImpl) GenerateID() string {
	return uuid.New().String()
}

// SlogTelemetry implements attendance.Telemetry by writing structured log
// records. Emission is fire-and-forget; it never returns an error to callers.
type SlogTelemetry struct {
	logger *slog.Logger
}

func NewSlogTelemetry(logger *slog.Logger) *SlogTelemetry {
	return &SlogTelemetry{logger: logger}
}

func (t *SlogTelemetry) Emit(name string, props map[string]interface{}) {
	attrs := make([]any, 0, len(props)*2)
	for k, v := range props {
		attrs = append(attrs, k, v)
	}
	t.logger.Info("telemetry: "+name, attrs...)
}

// DegreeProgressStub implements attendance.DegreeProgressUpdater. The real
// degree ledger lives in a separate chapter management system; this stub
// records the hand-off.
type DegreeProgressStub struct {
	logger *slog.Logger
}

func NewDegreeProgressStub(logger *slog.Logger) *DegreeProgressStub {
	return &DegreeProgressStub{logger: logger}
}

func (s *DegreeProgressStub) ApplyCredits(ctx context.Context, memberID attendance.MemberID, credits []attendance.DegreeCredit) error {
	s.logger.Info("stub: applying degree credits", "member_id", memberID, "count", len(credits))
	return nil
}

// LogSender implements reminder.Sender by logging the delivery. The real push
// channel lives outside this core.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, memberID attendance.MemberID, kind reminder.Kind, message string) error {
	s.logger.Info("stub: sending reminder", "member_id", memberID, "kind", kind, "message", message)
	return nil
}

// ResilientSender wraps a reminder.Sender with retries and a circuit breaker
// so a degraded delivery channel cannot stall reminder firing.
type ResilientSender struct {
	inner   reminder.Sender
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewResilientSender(inner reminder.Sender, logger *slog.Logger) *ResilientSender {
	onStateChange := func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
	}
	return &ResilientSender{
		inner:   inner,
		retrier: retry.DeliveryRetrier(),
		breaker: circuitbreaker.DeliveryBreaker(onStateChange),
		logger:  logger,
	}
}

func (s *ResilientSender) Send(ctx context.Context, memberID attendance.MemberID, kind reminder.Kind, message string) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			if err := s.inner.Send(ctx, memberID, kind, message); err != nil {
				return retry.Retryable(err)
			}
			return nil
		})
	})
}
