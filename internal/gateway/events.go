package gateway

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a gateway event. The values double as the
// channel names WebSocket clients subscribe to.
type EventType string

// Gateway event types.
const (
	// EventControllerRegistered fires when a controller announces itself
	// for the first time.
	EventControllerRegistered EventType = "controller.registered"

	// EventControllerOnline fires when a known controller comes back.
	EventControllerOnline EventType = "controller.online"

	// EventControllerOffline fires when a controller's Last Will arrives.
	EventControllerOffline EventType = "controller.offline"

	// EventCommandResult fires once per command exchange, whatever the
	// outcome.
	EventCommandResult EventType = "command.result"

	// EventPositionSynced fires when a position uploaded by a controller
	// has been stored.
	EventPositionSynced EventType = "position.synced"
)

// Event is one gateway occurrence as delivered to hub subscribers.
// Fields that do not apply to the event type are zero.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	MAC       string    `json:"mac_address,omitempty"`
	Shelf     int       `json:"shelf_number,omitempty"`
	Position  int       `json:"position_id,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	LatencyMS int64     `json:"latency_ms,omitempty"`
	Time      time.Time `json:"time"`
}

// defaultEventBuffer is the subscriber channel size used when the
// caller does not ask for one.
const defaultEventBuffer = 64

// Hub fans gateway events out to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event, so a stalled
// WebSocket client cannot back-pressure the command path.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	closed      bool
	dropped     atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]chan Event),
	}
}

// Subscribe registers a new subscriber and returns its id together with
// the event channel. A buffer below one selects the default. The
// channel is closed by Unsubscribe or Close; subscribing to a closed
// hub returns an already-closed channel.
func (h *Hub) Subscribe(buffer int) (string, <-chan Event) {
	if buffer < 1 {
		buffer = defaultEventBuffer
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return "", ch
	}

	id := uuid.NewString()
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids
// are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// Publish delivers the event to every subscriber. A zero ID and Time
// are filled in. Sends are non-blocking; events a full subscriber could
// not take are counted as dropped.
func (h *Hub) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns the number of events discarded because a subscriber
// buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes every subscriber channel and rejects future subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}
