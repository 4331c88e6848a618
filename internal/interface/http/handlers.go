package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/chapterhub/chapter-attendance-hub/internal/application/command"
	"github.com/chapterhub/chapter-attendance-hub/internal/application/query"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/reminder"
	"github.com/chapterhub/chapter-attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

type checkInRequest struct {
	MemberID           string `json:"member_id"`
	EventID            string `json:"event_id"`
	EventType          string `json:"event_type"`
	VerificationMethod string `json:"verification_method"`
	Location           string `json:"location,omitempty"`
}

type checkOutRequest struct {
	MemberID   string `json:"member_id"`
	Reflection string `json:"reflection,omitempty"`
}

type scheduleRemindersRequest struct {
	RecordID string `json:"record_id"`
}

type recordResponse struct {
	ID                 string                    `json:"id"`
	MemberID           string                    `json:"member_id"`
	EventID            string                    `json:"event_id"`
	EventType          string                    `json:"event_type"`
	VerificationMethod string                    `json:"verification_method"`
	Location           string                    `json:"location,omitempty"`
	CheckedInAt        time.Time                 `json:"checked_in_at"`
	CheckedOutAt       *time.Time                `json:"checked_out_at,omitempty"`
	Status             string                    `json:"status"`
	DurationMinutes    int                       `json:"duration_minutes"`
	PointsA            int                       `json:"points_a"`
	PointsB            int                       `json:"points_b"`
	DegreeCredits      []attendance.DegreeCredit `json:"degree_credits,omitempty"`
	Reflection         string                    `json:"reflection,omitempty"`
}

type reminderResponse struct {
	ID       string    `json:"id"`
	RecordID string    `json:"record_id"`
	MemberID string    `json:"member_id"`
	FireAt   time.Time `json:"fire_at"`
	Kind     string    `json:"kind"`
	State    string    `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toRecordResponse(rec *attendance.Record) recordResponse {
	return recordResponse{
		ID:                 rec.ID.String(),
		MemberID:           rec.MemberID.String(),
		EventID:            rec.EventID.String(),
		EventType:          rec.EventType.String(),
		VerificationMethod: string(rec.VerificationMethod),
		Location:           rec.Location,
		CheckedInAt:        rec.CheckedInAt,
		CheckedOutAt:       rec.CheckedOutAt,
		Status:             string(rec.Status),
		DurationMinutes:    rec.DurationMinutes,
		PointsA:            rec.PointsA,
		PointsB:            rec.PointsB,
		DegreeCredits:      rec.DegreeCredits,
		Reflection:         rec.Reflection,
	}
}

func toReminderResponses(items []*reminder.ScheduledReminder) []reminderResponse {
	out := make([]reminderResponse, 0, len(items))
	for _, r := range items {
		out = append(out, reminderResponse{
			ID:       r.ID.String(),
			RecordID: r.AttendanceRecordID.String(),
			MemberID: r.MemberID.String(),
			FireAt:   r.FireAt,
			Kind:     string(r.Kind),
			State:    string(r.State),
		})
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := s.checkIn.Handle(r.Context(), command.CheckInCommand{
		MemberID:           req.MemberID,
		EventID:            req.EventID,
		EventType:          req.EventType,
		VerificationMethod: req.VerificationMethod,
		Location:           req.Location,
		CorrelationID:      r.Header.Get("X-Correlation-ID"),
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.recordCheckIn("error")
		}
		s.writeDomainError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.recordCheckIn("ok")
	}
	s.writeJSON(w, http.StatusCreated, toRecordResponse(record))
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	var req checkOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := s.checkOut.Handle(r.Context(), command.CheckOutCommand{
		RecordID:      r.PathValue("id"),
		MemberID:      req.MemberID,
		Reflection:    req.Reflection,
		CorrelationID: r.Header.Get("X-Correlation-ID"),
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.recordCheckOut("error")
		}
		s.writeDomainError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.recordCheckOut("ok")
	}
	s.writeJSON(w, http.StatusOK, toRecordResponse(record))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := query.GetHistoryQuery{
		MemberID:  r.PathValue("id"),
		EventType: r.URL.Query().Get("event_type"),
		Status:    r.URL.Query().Get("status"),
	}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		q.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		q.To = t
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}

	records, err := s.history.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"records": out})
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := s.streak.Handle(r.Context(), query.GetStreakQuery{MemberID: r.PathValue("id")})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, streak)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	q := query.GetUpcomingQuery{MemberID: r.PathValue("id")}

	if within := r.URL.Query().Get("within"); within != "" {
		d, err := time.ParseDuration(within)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "within must be a duration")
			return
		}
		q.Within = d
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}

	events, err := s.upcoming.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleScheduleReminders(w http.ResponseWriter, r *http.Request) {
	var req scheduleRemindersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecordID == "" {
		s.writeError(w, http.StatusBadRequest, "record_id is required")
		return
	}

	record, err := s.records.GetByID(r.Context(), attendance.RecordID(req.RecordID))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "attendance record not found")
		return
	}

	event, err := s.catalog.GetEvent(r.Context(), record.EventID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	scheduled, err := s.reminders.Schedule(r.Context(), record, event.EndsAt, s.reminderCfg)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"scheduled": len(scheduled),
		"reminders": toReminderResponses(scheduled),
	})
}

func (s *Server) handleCancelReminders(w http.ResponseWriter, r *http.Request) {
	recordID := attendance.RecordID(r.PathValue("recordID"))
	if err := s.reminders.Cancel(r.Context(), recordID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps domain error kinds onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, shared.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, shared.ErrStateConflict),
		errors.Is(err, shared.ErrStateTransition),
		errors.Is(err, shared.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidID):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("internal error", "error", err)
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, err.Error())
}
