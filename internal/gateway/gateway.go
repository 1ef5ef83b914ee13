package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/picklight-core/internal/audit"
	"github.com/nerrad567/picklight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/picklight-core/internal/shelf"
)

// Gateway operation constants.
const (
	// subscribeQoS is the QoS level for the inbound controller topics.
	subscribeQoS = 1

	// defaultCommandTimeout bounds the wait for a command acknowledgment.
	defaultCommandTimeout = 5 * time.Second

	// defaultResetTimeout bounds the wait for a config/reset
	// acknowledgment. A reset erases the controller's flash storage,
	// which takes far longer than applying a single command.
	defaultResetTimeout = 25 * time.Second

	// auditWriteTimeout bounds the audit insert per command record.
	// Audit writes run on their own deadline so a cancelled command
	// still leaves a trail.
	auditWriteTimeout = 2 * time.Second
)

// Gateway owns the command path between the HTTP API and the shelf
// controllers. It validates operations against the shelf registry,
// publishes command frames through the correlation session, and applies
// inbound controller traffic (announcements, wills, position uploads)
// back to the registry.
//
// Thread Safety: all methods are safe for concurrent use.
type Gateway struct {
	transport Transport
	session   Commander
	registry  ShelfRegistry
	auditLog  AuditLog // optional command trail
	recorder  Recorder // optional telemetry sink
	hub       *Hub
	topics    mqtt.Topics

	commandTimeout time.Duration
	resetTimeout   time.Duration

	// Shutdown coordination
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// Transport is the subscription surface the gateway needs from the MQTT
// client. *mqtt.Client satisfies it; tests substitute a fake.
type Transport interface {
	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Commander is the publish-and-wait primitive. *ack.Session satisfies
// it.
type Commander interface {
	// PublishAndWait publishes one command frame and blocks until the
	// device acknowledges it or timeout elapses.
	PublishAndWait(ctx context.Context, device, class, topic string, body []byte, timeout time.Duration) error
}

// ShelfRegistry is the registry surface the gateway consumes. It is
// satisfied by *shelf.Registry.
type ShelfRegistry interface {
	RegisterController(ctx context.Context, mac string) (bool, error)
	MarkOnline(ctx context.Context, mac string, online bool) error
	ControllerExists(mac string) bool
	ShelfByMAC(mac string) (*shelf.Shelf, error)
	MACForShelf(number int) (string, error)
	PositionExists(number, id int) bool
	LEDs(number, id int) ([]int, error)
	Positions(number int) ([]shelf.Position, error)
	CheckNewPosition(number int, pos shelf.Position) error
	CheckUpdatedPosition(number int, pos shelf.Position) error
	AddPosition(ctx context.Context, number int, pos shelf.Position) error
	UpdatePosition(ctx context.Context, number int, pos shelf.Position) error
	DeletePosition(ctx context.Context, number, id int) error
	DeleteShelf(ctx context.Context, number int) error
	RebindShelf(ctx context.Context, number int, mac string) error
}

// AuditLog records one row per command exchange.
// It is optional - if nil, the gateway operates without an audit trail.
type AuditLog interface {
	Create(ctx context.Context, rec *audit.Record) error
}

// Recorder receives command outcomes and presence transitions for
// time-series storage. A nil *telemetry.Client satisfies it as a no-op,
// so the field may always be set.
// It is optional - if nil, the gateway operates without telemetry.
type Recorder interface {
	WriteCommandOutcome(mac, class, operation, outcome string, latency time.Duration)
	WriteControllerPresence(mac string, online bool)
}

// Logger interface for gateway logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds configuration for creating a gateway.
type Options struct {
	// Transport is the MQTT client for the inbound subscriptions.
	Transport Transport

	// Session is the acknowledgment correlation session.
	Session Commander

	// Registry is the shelf registry all operations validate against.
	Registry ShelfRegistry

	// AuditLog is optional persistence for the command trail.
	AuditLog AuditLog

	// Recorder is optional telemetry for command outcomes and presence.
	Recorder Recorder

	// Logger is optional structured logger.
	Logger Logger

	// CommandTimeout overrides the acknowledgment wait for ordinary
	// commands. Zero selects the default.
	CommandTimeout time.Duration

	// ResetTimeout overrides the acknowledgment wait for config/reset.
	// Zero selects the default.
	ResetTimeout time.Duration
}

// NewGateway creates a gateway. Call Start to bring the inbound
// controller subscriptions online.
func NewGateway(opts Options) (*Gateway, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = defaultResetTimeout
	}

	// Gateway-level context so inbound handlers stop touching the
	// registry once Stop has run.
	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Gateway{
		transport:      opts.Transport,
		session:        opts.Session,
		registry:       opts.Registry,
		auditLog:       opts.AuditLog, // May be nil (optional)
		recorder:       opts.Recorder, // May be nil (optional)
		hub:            NewHub(),
		commandTimeout: opts.CommandTimeout,
		resetTimeout:   opts.ResetTimeout,
		ctx:            ctx,
		ctxCancel:      ctxCancel,
		logger:         opts.Logger,
	}, nil
}

// Start subscribes to the inbound controller topics: register
// announcements, offline wills, and position uploads. Acknowledgment
// topics are owned by the correlation session, not the gateway.
func (g *Gateway) Start() error {
	subscriptions := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{g.topics.Register(), g.handleRegister},
		{g.topics.AllOffline(), g.handleOffline},
		{g.topics.AllConfigPuts(), g.handleConfigPut},
	}

	for _, sub := range subscriptions {
		if err := g.transport.Subscribe(sub.topic, subscribeQoS, sub.handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.topic, err)
		}
		g.logDebug("subscribed", "topic", sub.topic)
	}

	g.logInfo("gateway started",
		"command_timeout", g.commandTimeout,
		"reset_timeout", g.resetTimeout,
	)
	return nil
}

// Stop removes the inbound subscriptions, aborts handler work, and
// closes the event hub. In-flight commands resolve through their own
// timeouts.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		for _, topic := range []string{
			g.topics.Register(),
			g.topics.AllOffline(),
			g.topics.AllConfigPuts(),
		} {
			if err := g.transport.Unsubscribe(topic); err != nil {
				g.logWarn("failed to unsubscribe", "topic", topic, "error", err)
			}
		}

		g.ctxCancel()
		g.hub.Close()
		g.logInfo("gateway stopped")
	})
}

// Events returns the hub gateway events are published to.
func (g *Gateway) Events() *Hub {
	return g.hub
}

// =============================================================================
// Inbound Handlers (controller -> gateway)
// =============================================================================

// handleRegister processes a pbl/register announcement. The payload is
// the controller's MAC address; unknown controllers are created, known
// ones are marked online.
func (g *Gateway) handleRegister(_ string, payload []byte) error {
	mac := string(payload)

	created, err := g.registry.RegisterController(g.ctx, mac)
	if err != nil {
		g.logWarn("rejecting controller announcement", "mac", mac, "error", err)
		return nil
	}

	if g.recorder != nil {
		g.recorder.WriteControllerPresence(mac, true)
	}

	if created {
		g.hub.Publish(Event{Type: EventControllerRegistered, MAC: mac})
		g.logInfo("controller registered", "mac", mac)
	} else {
		g.hub.Publish(Event{Type: EventControllerOnline, MAC: mac})
		g.logDebug("controller back online", "mac", mac)
	}
	return nil
}

// handleOffline processes a controller's Last Will. Wills for unknown
// controllers are dropped, matching the announcement-only registration
// model.
func (g *Gateway) handleOffline(topic string, _ []byte) error {
	mac := mqtt.DeviceMAC(topic)
	if mac == "" {
		g.logWarn("dropping will with unexpected topic", "topic", topic)
		return nil
	}

	if err := g.registry.MarkOnline(g.ctx, mac, false); err != nil {
		if errors.Is(err, shelf.ErrControllerNotFound) {
			g.logDebug("will from unknown controller", "mac", mac)
		} else {
			g.logWarn("failed to mark controller offline", "mac", mac, "error", err)
		}
		return nil
	}

	if g.recorder != nil {
		g.recorder.WriteControllerPresence(mac, false)
	}
	g.hub.Publish(Event{Type: EventControllerOffline, MAC: mac})
	g.logInfo("controller offline", "mac", mac)
	return nil
}

// handleConfigPut stores one position uploaded by a controller in
// response to config/get. Payload byte 0 is the position id, the rest
// are LED indices. Uploads are creations: an id already present on the
// shelf is dropped, not overwritten.
func (g *Gateway) handleConfigPut(topic string, payload []byte) error {
	mac := mqtt.DeviceMAC(topic)
	if mac == "" {
		g.logWarn("dropping position upload with unexpected topic", "topic", topic)
		return nil
	}

	bound, err := g.registry.ShelfByMAC(mac)
	if err != nil {
		g.logWarn("dropping position upload without a bound shelf", "mac", mac)
		return nil
	}

	if len(payload) < 2 {
		g.logWarn("dropping position upload without leds", "mac", mac, "bytes", len(payload))
		return nil
	}

	id := int(payload[0])
	leds := make([]int, 0, len(payload)-1)
	for _, b := range payload[1:] {
		leds = append(leds, int(b))
	}

	pos := shelf.Position{ShelfNumber: bound.Number, ID: id, LEDs: leds}
	if err := g.registry.AddPosition(g.ctx, bound.Number, pos); err != nil {
		g.logWarn("could not store uploaded position",
			"mac", mac,
			"shelf", bound.Number,
			"position", id,
			"error", err,
		)
		return nil
	}

	g.hub.Publish(Event{Type: EventPositionSynced, MAC: mac, Shelf: bound.Number, Position: id})
	g.logInfo("stored uploaded position", "mac", mac, "shelf", bound.Number, "position", id, "leds", len(leds))
	return nil
}

// =============================================================================
// Logging
// =============================================================================

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.loggerMu.Lock()
	g.logger = logger
	g.loggerMu.Unlock()
}

func (g *Gateway) getLogger() Logger {
	g.loggerMu.RLock()
	defer g.loggerMu.RUnlock()
	return g.logger
}

// logInfo logs an info message if a logger is set.
func (g *Gateway) logInfo(msg string, keysAndValues ...any) {
	if logger := g.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning message if a logger is set.
func (g *Gateway) logWarn(msg string, keysAndValues ...any) {
	if logger := g.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is set.
func (g *Gateway) logError(msg string, keysAndValues ...any) {
	if logger := g.getLogger(); logger != nil {
		logger.Error(msg, keysAndValues...)
	}
}

// logDebug logs a debug message if a logger is set.
func (g *Gateway) logDebug(msg string, keysAndValues ...any) {
	if logger := g.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// =============================================================================
// Metrics
// =============================================================================

// Metrics contains gateway state for the health endpoint.
type Metrics struct {
	Connected        bool   `json:"connected"`
	EventSubscribers int    `json:"event_subscribers"`
	EventsDropped    uint64 `json:"events_dropped"`
}

// GetMetrics returns current gateway metrics.
func (g *Gateway) GetMetrics() Metrics {
	return Metrics{
		Connected:        g.transport.IsConnected(),
		EventSubscribers: g.hub.SubscriberCount(),
		EventsDropped:    g.hub.Dropped(),
	}
}
