package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/picklight-core/internal/audit"
	"github.com/nerrad567/picklight-core/internal/infrastructure/telemetry"
)

// handleListCommandAudit returns paginated command delivery records with
// optional filters.
//
// Query parameters:
//   - mac: filter by controller MAC address
//   - class: filter by command class (light, config)
//   - outcome: filter by outcome (acked, timeout, transport_error)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListCommandAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeMessage(w, http.StatusInternalServerError, "command audit is not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		MAC:     q.Get("mac"),
		Class:   q.Get("class"),
		Outcome: q.Get("outcome"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list command audit records", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to list command audit records")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCommandStats returns command counts grouped by outcome over a
// trailing window, aggregated from the telemetry store. Answers 503
// when telemetry is disabled or disconnected.
//
// Query parameters:
//   - window: aggregation window as a Go duration (default 1h)
func (s *Server) handleCommandStats(w http.ResponseWriter, r *http.Request) {
	window := time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeMessage(w, http.StatusBadRequest, "window must be a positive duration such as 15m or 1h")
			return
		}
		window = d
	}

	if s.telemetry == nil {
		writeMessage(w, http.StatusServiceUnavailable, "command statistics require telemetry")
		return
	}

	stats, err := s.telemetry.CommandStats(r.Context(), window)
	if err != nil {
		if errors.Is(err, telemetry.ErrNotConnected) {
			writeMessage(w, http.StatusServiceUnavailable, "command statistics require telemetry")
			return
		}
		s.logger.Error("failed to query command stats", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to query command statistics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"window":   window.String(),
		"outcomes": stats,
	})
}
