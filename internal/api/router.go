package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health and version (no auth required)
	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	// Token exchange (no auth required; the API key is the credential)
	r.Post("/auth/token", s.handleToken)

	// System metrics (no auth required for basic monitoring)
	r.Get("/metrics", s.handleMetrics)

	// WebSocket event stream. Ticket auth happens in the handler; browsers
	// cannot set an Authorization header on the upgrade request.
	r.Get(s.wsPath(), s.handleWebSocket)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		// WS ticket requires authentication - the caller trades a bearer
		// token for a single-use connection ticket
		r.Post("/auth/ws-ticket", s.handleWSTicket)

		// Light command and shelf management routes. The paths are kept
		// exactly as the warehouse frontends already call them.
		r.Route("/light", func(r chi.Router) {
			r.Post("/turnOn", s.handleTurnOn)
			r.Post("/turnOff", s.handleTurnOff)
			r.Post("/turnOnAll", s.handleTurnOnAll)
			r.Post("/turnOffAll", s.handleTurnOffAll)
			r.Post("/setLEDs", s.handleSetLEDs)
			r.Post("/unsetLEDs", s.handleUnsetLEDs)
			r.Put("/createShelf", s.handleCreateShelf)
			r.Put("/createPosition", s.handleCreatePosition)
			r.Put("/updatePosition", s.handleUpdatePosition)
			r.Delete("/deletePosition", s.handleDeletePosition)
			r.Delete("/deleteShelf", s.handleDeleteShelf)
			r.Get("/getPositions/{shelfNumber}", s.handleGetPositions)
			r.Get("/getShelves", s.handleGetShelves)
			r.Get("/getMACAddresses", s.handleGetMACAddresses)
			r.Get("/getESP32", s.handleGetESP32)
			r.Post("/resetESP32", s.handleResetESP32)
			r.Post("/loadESP32", s.handleLoadESP32)
		})

		// Command delivery history
		r.Get("/audit/commands", s.handleListCommandAudit)
		r.Get("/audit/stats", s.handleCommandStats)
	})

	return r
}

// defaultWSPath is the WebSocket route used when none is configured.
const defaultWSPath = "/ws/events"

// wsPath returns the configured WebSocket route.
func (s *Server) wsPath() string {
	if s.wsCfg.Path != "" {
		return s.wsCfg.Path
	}
	return defaultWSPath
}

// handleHealth returns the server health status with per-dependency checks.
// The endpoint always answers 200 so load balancers can read the body;
// "degraded" means a dependency check failed.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := make(map[string]string)

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	}

	if s.gateway.GetMetrics().Connected {
		checks["mqtt"] = "connected"
	} else {
		checks["mqtt"] = "disconnected"
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}

// handleVersion returns the build version.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}
