package shelf

import "time"

// Controller represents an ESP32 shelf controller known to the system.
// Controllers announce themselves on pbl/register and are never created
// through the API; a controller record survives the deletion of the
// shelf it was bound to.
//
// The JSON field names follow the wire format the warehouse frontends
// already consume.
type Controller struct {
	// MACAddress identifies the controller and addresses its command
	// topics (pbl/<mac>/...). Stored exactly as announced.
	MACAddress string `json:"Mac_Address"`

	// Used reports whether the controller is bound to a shelf.
	Used bool `json:"isUsed"`

	// Online reports broker presence: true after a register
	// announcement, false after the offline will fires.
	Online bool `json:"isOnline"`

	FirstSeen time.Time `json:"FirstSeen"`
	LastSeen  time.Time `json:"LastSeen"`
}

// DeepCopy creates a copy of the controller.
func (c *Controller) DeepCopy() *Controller {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

// Shelf binds a shelf number to a controller MAC and carries the pick
// positions configured on it.
type Shelf struct {
	Number     int        `json:"ShelfNumber"`
	MACAddress string     `json:"Mac_Address"`
	Positions  []Position `json:"Positions"`
	CreatedAt  time.Time  `json:"CreatedAt"`
	UpdatedAt  time.Time  `json:"UpdatedAt"`
}

// DeepCopy creates a deep copy of the shelf, including its positions.
// Essential for cache isolation: callers can modify the returned shelf
// without affecting the cached original.
func (s *Shelf) DeepCopy() *Shelf {
	if s == nil {
		return nil
	}
	copied := *s
	copied.Positions = make([]Position, len(s.Positions))
	for i := range s.Positions {
		copied.Positions[i] = *s.Positions[i].DeepCopy()
	}
	return &copied
}

// Position returns the position with the given id, or nil.
func (s *Shelf) Position(id int) *Position {
	for i := range s.Positions {
		if s.Positions[i].ID == id {
			return &s.Positions[i]
		}
	}
	return nil
}

// Position is a pick position on a shelf: an id the firmware addresses
// it by (one byte on the wire) and the LED strip indices it lights up.
type Position struct {
	ShelfNumber int       `json:"ShelfNumber"`
	ID          int       `json:"PositionId"`
	LEDs        []int     `json:"LEDs"`
	CreatedAt   time.Time `json:"CreatedAt"`
	UpdatedAt   time.Time `json:"UpdatedAt"`
}

// DeepCopy creates a deep copy of the position.
func (p *Position) DeepCopy() *Position {
	if p == nil {
		return nil
	}
	copied := *p
	copied.LEDs = make([]int, len(p.LEDs))
	copy(copied.LEDs, p.LEDs)
	return &copied
}
