package ack

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/nerrad567/picklight-core/internal/infrastructure/mqtt"
)

// idSpace is the number of distinct acknowledgment ids. The id travels
// as a single byte, so a device can have at most 256 commands in flight
// per class.
const idSpace = 256

// Transport is the pub/sub surface the session needs. *mqtt.Client
// satisfies it; tests substitute a fake.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger interface for session logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Session.
type Options struct {
	// Classes are the acknowledgment classes to subscribe to. Defaults
	// to the light and config classes.
	Classes []string

	// QoS for command publishes and ack subscriptions.
	QoS byte

	// Logger for dispatcher and lifecycle logging. Defaults to a no-op.
	Logger Logger
}

// Stats is a snapshot of session counters, exposed through the health
// endpoint.
type Stats struct {
	Matched   uint64 `json:"matched"`
	TimedOut  uint64 `json:"timed_out"`
	Unmatched uint64 `json:"unmatched"`
	Malformed uint64 `json:"malformed"`
	Pending   int    `json:"pending"`
}

// Session owns the acknowledgment subscriptions and the correlation
// registry, and exposes PublishAndWait as the single command primitive.
//
// Thread Safety: all methods are safe for concurrent use. Callers for
// different devices, or for the same device on different classes or
// ids, proceed fully independently.
type Session struct {
	transport Transport
	registry  *Registry
	classes   []string
	qos       byte
	logger    Logger

	matched   atomic.Uint64
	timedOut  atomic.Uint64
	unmatched atomic.Uint64
	malformed atomic.Uint64
}

// NewSession creates a session over the given transport. Call Start to
// bring the acknowledgment routing online.
func NewSession(transport Transport, opts Options) *Session {
	if len(opts.Classes) == 0 {
		opts.Classes = []string{mqtt.ClassLight, mqtt.ClassConfig}
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	return &Session{
		transport: transport,
		registry:  NewRegistry(),
		classes:   opts.Classes,
		qos:       opts.QoS,
		logger:    opts.Logger,
	}
}

// Start subscribes to the wildcard acknowledgment topic of every class
// and returns once each subscription handshake has completed. From then
// on inbound ack frames are routed to the dispatcher.
func (s *Session) Start() error {
	for _, class := range s.classes {
		topic := mqtt.Topics{}.AckWildcard(class)
		if err := s.transport.Subscribe(topic, s.qos, s.handleAck); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		s.logger.Debug("acknowledgment routing online", "class", class, "topic", topic)
	}
	return nil
}

// Stop removes the acknowledgment subscriptions. Outstanding waits are
// left to resolve through their own timeouts; connection teardown must
// not hang them and must not resolve them early.
func (s *Session) Stop() {
	for _, class := range s.classes {
		topic := mqtt.Topics{}.AckWildcard(class)
		if err := s.transport.Unsubscribe(topic); err != nil {
			s.logger.Warn("failed to unsubscribe acknowledgment topic", "topic", topic, "error", err)
		}
	}

	if n := s.registry.Len(); n > 0 {
		s.logger.Warn("stopping with outstanding wait entries", "count", n)
	}
}

// PublishAndWait publishes one command frame to topic and suspends the
// caller until the device echoes the frame's acknowledgment id back on
// its ack topic for class, or until timeout elapses.
//
// The frame is body prefixed with a freshly allocated id; the id is
// guaranteed not to collide with any id currently in flight for the
// same device and class. The deadline is measured from registration,
// on the monotonic clock.
//
// Returns:
//   - nil: the acknowledgment arrived in time. A match that races the
//     deadline wins; the caller sees success, never both outcomes.
//   - ErrTimeout: no acknowledgment within timeout, or timeout was not
//     positive, or ctx was cancelled mid-wait. The entry is removed
//     before returning; a later echo of this id is dropped.
//   - ErrTransportUnavailable: the publish failed or no id was free.
//     The entry is removed; nothing is in flight.
func (s *Session) PublishAndWait(ctx context.Context, device, class, topic string, body []byte, timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: non-positive timeout %v", ErrTimeout, timeout)
	}

	handle, err := s.allocate(device, class)
	if err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	frame := EncodeCommand(handle.Key.ID, body)
	if err := s.transport.Publish(topic, frame, s.qos, false); err != nil {
		s.registry.Expire(class, handle.Key)
		return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}

	select {
	case outcome := <-handle.Done():
		if outcome == OutcomeMatched {
			s.matched.Add(1)
			return nil
		}
		s.timedOut.Add(1)
		return ErrTimeout

	case <-timer.C:
		if !s.registry.Expire(class, handle.Key) {
			// The acknowledgment won the race; trust it.
			s.matched.Add(1)
			return nil
		}
		s.timedOut.Add(1)
		s.logger.Debug("wait expired",
			"device", device,
			"class", class,
			"id", handle.Key.ID,
			"waited", time.Since(handle.RegisteredAt()),
		)
		return ErrTimeout

	case <-ctx.Done():
		if !s.registry.Expire(class, handle.Key) {
			s.matched.Add(1)
			return nil
		}
		s.timedOut.Add(1)
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}

// allocate reserves a correlation key for device in class. Ids are
// probed from a random starting point so concurrent callers spread
// across the space; a full sweep finding every id live means 256
// commands are already outstanding for this device and class.
func (s *Session) allocate(device, class string) (*WaitHandle, error) {
	start := rand.Intn(idSpace)
	for i := 0; i < idSpace; i++ {
		id := byte((start + i) % idSpace)
		handle, err := s.registry.Register(class, Key{Device: device, ID: id})
		if err == nil {
			return handle, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: no free acknowledgment id for device %s", ErrTransportUnavailable, device)
}

// handleAck is the dispatcher: invoked by the transport, potentially
// concurrently, once per inbound ack frame. It must never block and
// never panic; malformed frames are logged and dropped.
func (s *Session) handleAck(topic string, payload []byte) error {
	device, class, ok := mqtt.ParseAck(topic)
	if !ok {
		s.malformed.Add(1)
		s.logger.Warn("dropping acknowledgment with unexpected topic", "topic", topic)
		return nil
	}

	id, err := DecodeAck(payload)
	if err != nil {
		s.malformed.Add(1)
		s.logger.Warn("dropping malformed acknowledgment", "topic", topic, "error", err)
		return nil
	}

	if !s.registry.Match(class, Key{Device: device, ID: id}) {
		// Late or spurious echo; the wait already resolved.
		s.unmatched.Add(1)
		s.logger.Debug("acknowledgment with no outstanding wait",
			"device", device,
			"class", class,
			"id", id,
		)
	}

	return nil
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Matched:   s.matched.Load(),
		TimedOut:  s.timedOut.Load(),
		Unmatched: s.unmatched.Load(),
		Malformed: s.malformed.Load(),
		Pending:   s.registry.Len(),
	}
}
