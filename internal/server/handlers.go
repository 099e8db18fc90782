package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"vidpulse/internal/pipeline"
)

// HealthResponse is the /health body
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// TickResponse summarizes a manually triggered tick
type TickResponse struct {
	RunID       string   `json:"run_id"`
	UTCHour     int      `json:"utc_hour"`
	DryRun      bool     `json:"dry_run"`
	Users       int      `json:"users"`
	AnalysisDue int      `json:"analysis_due"`
	EmailDue    int      `json:"email_due"`
	Analyzed    int      `json:"analyzed"`
	Emailed     int      `json:"emailed"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	Anomalies   int      `json:"anomalies"`
	Failures    []string `json:"failures,omitempty"`
	Duration    string   `json:"duration"`
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
}

var serverStartTime = time.Now()

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	uptime := time.Since(serverStartTime).Round(time.Second).String()

	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("Health check: database unreachable")
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Uptime: uptime,
			Checks: checks,
		})
		return
	}

	checks["database"] = "ok"
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: uptime,
		Checks: checks,
	})
}

// handleTick runs one pass synchronously. ?hour=N overrides the UTC hour.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	if raw := r.URL.Query().Get("hour"); raw != "" {
		hour, err := strconv.Atoi(raw)
		if err != nil || hour < 0 || hour > 23 {
			s.respondError(w, http.StatusBadRequest, "hour must be an integer between 0 and 23")
			return
		}
		now = time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	}

	// The tick outlives the request so a client disconnect does not abort it.
	ctx := context.WithoutCancel(r.Context())
	if s.tickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.tickTimeout)
		defer cancel()
	}

	report, err := s.runner.RunTick(ctx, now)
	switch {
	case errors.Is(err, pipeline.ErrTickInProgress):
		s.respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.log.Error().Err(err).Msg("Manual tick failed")
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, newTickResponse(report))
}

func newTickResponse(report *pipeline.TickReport) TickResponse {
	resp := TickResponse{
		RunID:       report.RunID,
		UTCHour:     report.UTCHour,
		DryRun:      report.DryRun,
		Users:       report.Users,
		AnalysisDue: report.AnalysisDue,
		EmailDue:    report.EmailDue,
		Analyzed:    report.Analyzed,
		Emailed:     report.Emailed,
		Skipped:     report.Skipped,
		Failed:      report.Failed(),
		Anomalies:   len(report.Anomalies),
		Duration:    report.FinishedAt.Sub(report.StartedAt).String(),
	}
	if report.Failures != nil {
		for _, err := range report.Failures.Errors {
			resp.Failures = append(resp.Failures, err.Error())
		}
	}
	return resp
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
