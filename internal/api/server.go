package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/picklight-core/internal/ack"
	"github.com/nerrad567/picklight-core/internal/audit"
	"github.com/nerrad567/picklight-core/internal/auth"
	"github.com/nerrad567/picklight-core/internal/gateway"
	"github.com/nerrad567/picklight-core/internal/infrastructure/config"
	"github.com/nerrad567/picklight-core/internal/infrastructure/database"
	"github.com/nerrad567/picklight-core/internal/infrastructure/logging"
	"github.com/nerrad567/picklight-core/internal/shelf"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Gateway is the command surface the API exposes over HTTP. Every call
// that reaches a controller blocks until the controller acknowledges it
// or the acknowledgment times out.
type Gateway interface {
	TurnOn(ctx context.Context, number, positionID int, color string) error
	TurnOff(ctx context.Context, number, positionID int) error
	TurnOnAll(ctx context.Context, number int, color string) error
	TurnOffAll(ctx context.Context, number int) error
	SetLEDs(ctx context.Context, mac string, leds []int, color string) error
	UnsetLEDs(ctx context.Context, mac string, leds []int) error
	CreatePosition(ctx context.Context, number, positionID int, leds []int) error
	UpdatePosition(ctx context.Context, number, positionID int, leds []int) error
	DeletePosition(ctx context.Context, number, positionID int) error
	DeleteShelf(ctx context.Context, number int) error
	ResetController(ctx context.Context, mac string) error
	PullConfig(ctx context.Context, mac string, number int) error
	LoadShelf(ctx context.Context, number int) error
	Events() *gateway.Hub
	GetMetrics() gateway.Metrics
}

// ShelfDirectory is the part of the shelf registry the API reads and
// binds without crossing MQTT.
type ShelfDirectory interface {
	CreateShelf(ctx context.Context, number int, mac string) error
	Shelf(number int) (*shelf.Shelf, error)
	ListShelves() []shelf.Shelf
	UnusedMACs() []string
	MACForShelf(number int) (string, error)
	LEDs(number, id int) ([]int, error)
	Stats() shelf.Stats
}

// AckStats exposes acknowledgment session counters for the metrics endpoint.
type AckStats interface {
	Stats() ack.Stats
}

// CommandStatsSource serves aggregate command outcome counts from the
// telemetry store. *telemetry.Client satisfies it, including when nil:
// a disabled client answers every query with ErrNotConnected.
type CommandStatsSource interface {
	CommandStats(ctx context.Context, window time.Duration) (map[string]int64, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Gateway   Gateway
	Registry  ShelfDirectory
	Audit     audit.Repository       // optional: /audit/commands reports unavailable without it
	Tokens    *auth.Service          // optional: required only when Security.Auth.Enabled
	Ack       AckStats               // optional: ack counters in /metrics
	DB        *database.DB           // optional: database checks in /health and /metrics
	Telemetry CommandStatsSource     // optional: /audit/stats reports unavailable without it
	Version   string
}

// Server is the HTTP API server for PickLight Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	gateway   Gateway
	registry  ShelfDirectory
	audit     audit.Repository
	tokens    *auth.Service
	ack       AckStats
	db        *database.DB
	telemetry CommandStatsSource
	version   string

	startTime time.Time
	server    *http.Server
	hub       *Hub
	tickets   *ticketStore
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("shelf registry is required")
	}
	if deps.Security.Auth.Enabled && deps.Tokens == nil {
		return nil, fmt.Errorf("auth is enabled but no token service was provided")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		gateway:   deps.Gateway,
		registry:  deps.Registry,
		audit:     deps.Audit,
		tokens:    deps.Tokens,
		ack:       deps.Ack,
		db:        deps.DB,
		telemetry: deps.Telemetry,
		version:   deps.Version,
		startTime: time.Now(),
		tickets:   newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to the
// gateway event stream for real-time WebSocket broadcast, and launches
// the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub and relay gateway events onto it
	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)
	go s.relayEvents(srvCtx)

	// Start periodic ticket cleanup to prevent memory leaks
	go s.cleanTicketsLoop(srvCtx)

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, event relay, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
