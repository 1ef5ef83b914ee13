package ack

import (
	"sync"
	"time"
)

// Key identifies one outstanding command: the device it was sent to and
// the acknowledgment id embedded in its frame. A key is unique within
// its class while the entry is live; the id is free for reuse the moment
// the entry resolves.
type Key struct {
	Device string
	ID     byte
}

// Outcome is the resolution of a wait entry.
type Outcome int

const (
	// OutcomeMatched means the acknowledgment arrived while the entry
	// was still live.
	OutcomeMatched Outcome = iota

	// OutcomeExpired means the entry was removed without a match.
	OutcomeExpired
)

// WaitHandle is the caller's view of one registered wait entry. The
// channel returned by Done delivers the entry's single resolution.
type WaitHandle struct {
	Class string
	Key   Key

	registered time.Time
	done       chan Outcome
}

// Done returns the channel the entry's resolution is delivered on.
// The channel is buffered; resolution never blocks on a slow caller.
func (h *WaitHandle) Done() <-chan Outcome {
	return h.done
}

// RegisteredAt returns when the entry was created.
func (h *WaitHandle) RegisteredAt() time.Time {
	return h.registered
}

// Registry holds the in-flight wait entries, one keyed map per
// acknowledgment class. Classes are created on first use; the set is
// open, not hard-coded to the light and config classes.
//
// A single mutex guards every map so that a match and an expiry racing
// on the same key resolve the entry exactly once: removal from the map
// and delivery of the outcome happen in the same critical section, and
// only the operation that performs the removal delivers.
type Registry struct {
	mu      sync.Mutex
	classes map[string]map[Key]*WaitHandle
}

// NewRegistry creates an empty correlation registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]map[Key]*WaitHandle),
	}
}

// Register creates a wait entry for key in class.
//
// Returns ErrDuplicateKey if an entry is already live for that key; the
// caller must allocate a different id and retry rather than stomp the
// existing entry.
func (r *Registry) Register(class string, key Key) (*WaitHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.classes[class]
	if !ok {
		entries = make(map[Key]*WaitHandle)
		r.classes[class] = entries
	}

	if _, exists := entries[key]; exists {
		return nil, ErrDuplicateKey
	}

	handle := &WaitHandle{
		Class:      class,
		Key:        key,
		registered: time.Now(),
		done:       make(chan Outcome, 1),
	}
	entries[key] = handle

	return handle, nil
}

// Match removes the entry for key in class and signals its waiter with
// OutcomeMatched. Returns whether an entry was present.
//
// A missing entry is not an error: it means the wait already timed out
// or the frame was spurious, both expected on a live system.
func (r *Registry) Match(class string, key Key) bool {
	return r.resolve(class, key, OutcomeMatched)
}

// Expire removes the entry for key in class and signals its waiter with
// OutcomeExpired. Returns whether the entry was still present; false
// means a match raced ahead and the caller must honour that resolution
// instead.
func (r *Registry) Expire(class string, key Key) bool {
	return r.resolve(class, key, OutcomeExpired)
}

func (r *Registry) resolve(class string, key Key, outcome Outcome) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.classes[class]
	if !ok {
		return false
	}

	handle, ok := entries[key]
	if !ok {
		return false
	}

	delete(entries, key)

	// Buffered send; cannot block and cannot happen twice because the
	// entry is gone from the map before anyone else can resolve it.
	handle.done <- outcome

	return true
}

// Len returns the number of live entries across all classes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, entries := range r.classes {
		total += len(entries)
	}
	return total
}
