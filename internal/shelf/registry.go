package shelf

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides shelf and controller management with caching and
// thread safety. It wraps a Repository and keeps the whole catalogue in
// memory; the data set is small and bounded (one record per physical
// shelf), so the cache is authoritative after Load() and kept in sync
// by write-through mutations.
//
// All public methods are thread-safe. Every record returned is a deep
// copy; callers can modify it freely.
type Registry struct {
	repo   Repository
	logger Logger

	mu          sync.RWMutex
	controllers map[string]*Controller // by MAC address
	shelves     map[int]*Shelf         // by shelf number, positions included
}

// NewRegistry creates a new shelf registry.
// The repository is used for persistence; call Load before serving.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:        repo,
		logger:      noopLogger{},
		controllers: make(map[string]*Controller),
		shelves:     make(map[int]*Shelf),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load marks every controller offline and then fills the cache from the
// repository. Called once at startup: presence is only trustworthy when
// re-learned from pbl/register announcements after a restart.
func (r *Registry) Load(ctx context.Context) error {
	if err := r.repo.MarkAllControllersOffline(ctx); err != nil {
		return err
	}

	controllers, err := r.repo.ListControllers(ctx)
	if err != nil {
		return fmt.Errorf("loading controllers: %w", err)
	}
	shelves, err := r.repo.ListShelves(ctx)
	if err != nil {
		return fmt.Errorf("loading shelves: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.controllers = make(map[string]*Controller, len(controllers))
	for i := range controllers {
		c := controllers[i]
		r.controllers[c.MACAddress] = c.DeepCopy()
	}
	r.shelves = make(map[int]*Shelf, len(shelves))
	for i := range shelves {
		s := shelves[i]
		r.shelves[s.Number] = s.DeepCopy()
	}

	r.logger.Info("shelf registry loaded",
		"controllers", len(controllers), "shelves", len(shelves))
	return nil
}

// =============================================================================
// Controllers
// =============================================================================

// RegisterController records a pbl/register announcement. A new MAC is
// inserted unused and online; a known MAC is marked online. Returns
// true when the controller was newly created.
func (r *Registry) RegisterController(ctx context.Context, mac string) (bool, error) {
	if err := ValidateMAC(mac); err != nil {
		return false, err
	}

	r.mu.RLock()
	_, known := r.controllers[mac]
	r.mu.RUnlock()

	if known {
		if err := r.MarkOnline(ctx, mac, true); err != nil {
			return false, err
		}
		r.logger.Debug("controller back online", "mac", mac)
		return false, nil
	}

	now := time.Now().UTC()
	controller := &Controller{
		MACAddress: mac,
		Used:       false,
		Online:     true,
		FirstSeen:  now,
		LastSeen:   now,
	}
	err := r.repo.CreateController(ctx, controller)
	if errors.Is(err, ErrControllerExists) {
		// Lost a race with a duplicate announcement.
		return false, r.MarkOnline(ctx, mac, true)
	}
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	r.controllers[mac] = controller.DeepCopy()
	r.mu.Unlock()

	r.logger.Info("controller registered", "mac", mac)
	return true, nil
}

// MarkOnline updates a controller's presence flag.
// Returns ErrControllerNotFound for a MAC that never registered.
func (r *Registry) MarkOnline(ctx context.Context, mac string, online bool) error {
	now := time.Now().UTC()
	if err := r.repo.SetControllerOnline(ctx, mac, online, now); err != nil {
		return err
	}

	r.mu.Lock()
	if cached, ok := r.controllers[mac]; ok {
		updated := cached.DeepCopy()
		updated.Online = online
		updated.LastSeen = now
		r.controllers[mac] = updated
	}
	r.mu.Unlock()

	r.logger.Debug("controller presence updated", "mac", mac, "online", online)
	return nil
}

// Controller retrieves a controller by MAC address.
func (r *Registry) Controller(mac string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.controllers[mac]
	if !ok {
		return nil, ErrControllerNotFound
	}
	return cached.DeepCopy(), nil
}

// ControllerExists reports whether a MAC address has registered.
func (r *Registry) ControllerExists(mac string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.controllers[mac]
	return ok
}

// ListControllers retrieves all controllers ordered by MAC address.
func (r *Registry) ListControllers() []Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()

	controllers := make([]Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, *c.DeepCopy())
	}
	sort.Slice(controllers, func(i, j int) bool {
		return controllers[i].MACAddress < controllers[j].MACAddress
	})
	return controllers
}

// UnusedMACs returns the MAC addresses of controllers not bound to any
// shelf, sorted. These are the candidates for a new shelf.
func (r *Registry) UnusedMACs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	macs := make([]string, 0, len(r.controllers))
	for mac, c := range r.controllers {
		if !c.Used {
			macs = append(macs, mac)
		}
	}
	sort.Strings(macs)
	return macs
}

// =============================================================================
// Shelves
// =============================================================================

// CreateShelf binds a shelf number to a controller. The number must be
// free, the MAC registered, and the controller not already bound.
func (r *Registry) CreateShelf(ctx context.Context, number int, mac string) error {
	r.mu.RLock()
	_, taken := r.shelves[number]
	controller, known := r.controllers[mac]
	used := known && controller.Used
	r.mu.RUnlock()

	if taken {
		return fmt.Errorf("%w: shelf %d", ErrShelfExists, number)
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrControllerNotFound, mac)
	}
	if used {
		return fmt.Errorf("%w: %s", ErrControllerInUse, mac)
	}

	s := &Shelf{
		Number:     number,
		MACAddress: mac,
		Positions:  []Position{},
	}
	if err := r.repo.CreateShelf(ctx, s); err != nil {
		return err
	}

	r.mu.Lock()
	r.shelves[number] = s.DeepCopy()
	if cached, ok := r.controllers[mac]; ok {
		updated := cached.DeepCopy()
		updated.Used = true
		r.controllers[mac] = updated
	}
	r.mu.Unlock()

	r.logger.Info("shelf created", "number", number, "mac", mac)
	return nil
}

// DeleteShelf removes a shelf and its positions and releases the
// controller for reuse. The controller record itself is kept.
func (r *Registry) DeleteShelf(ctx context.Context, number int) error {
	r.mu.RLock()
	cached, ok := r.shelves[number]
	var mac string
	if ok {
		mac = cached.MACAddress
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: shelf %d", ErrShelfNotFound, number)
	}

	if err := r.repo.DeleteShelf(ctx, number); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.shelves, number)
	if c, exists := r.controllers[mac]; exists {
		updated := c.DeepCopy()
		updated.Used = false
		r.controllers[mac] = updated
	}
	r.mu.Unlock()

	r.logger.Info("shelf deleted", "number", number, "mac", mac)
	return nil
}

// RebindShelf prepares an empty shelf for a configuration pull from the
// controller. Allowed when the shelf is already bound to mac (it is
// recreated empty) or when neither the number nor the MAC is in use.
// Requesting a number that belongs to a different controller returns
// ErrShelfMismatch; a MAC already serving another shelf returns
// ErrControllerInUse.
func (r *Registry) RebindShelf(ctx context.Context, number int, mac string) error {
	r.mu.RLock()
	_, known := r.controllers[mac]
	current, taken := r.shelves[number]
	var currentMAC string
	if taken {
		currentMAC = current.MACAddress
	}
	var boundNumber int
	bound := false
	for _, s := range r.shelves {
		if s.MACAddress == mac {
			boundNumber = s.Number
			bound = true
			break
		}
	}
	r.mu.RUnlock()

	if !known {
		return fmt.Errorf("%w: %s", ErrControllerNotFound, mac)
	}

	switch {
	case taken && currentMAC == mac:
		// Same binding: throw away the stored layout, the controller
		// is about to stream its own.
		if err := r.DeleteShelf(ctx, number); err != nil {
			return err
		}
	case taken:
		return fmt.Errorf("%w: shelf %d belongs to %s", ErrShelfMismatch, number, currentMAC)
	case bound:
		return fmt.Errorf("%w: %s serves shelf %d", ErrControllerInUse, mac, boundNumber)
	}

	if err := r.CreateShelf(ctx, number, mac); err != nil {
		return err
	}

	r.logger.Info("shelf rebound for config pull", "number", number, "mac", mac)
	return nil
}

// Shelf retrieves a shelf with its positions by number.
func (r *Registry) Shelf(number int) (*Shelf, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.shelves[number]
	if !ok {
		return nil, fmt.Errorf("%w: shelf %d", ErrShelfNotFound, number)
	}
	return cached.DeepCopy(), nil
}

// ShelfByMAC retrieves the shelf bound to a controller MAC.
func (r *Registry) ShelfByMAC(mac string) (*Shelf, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.shelves {
		if s.MACAddress == mac {
			return s.DeepCopy(), nil
		}
	}
	return nil, fmt.Errorf("%w: no shelf for %s", ErrShelfNotFound, mac)
}

// MACForShelf returns the controller MAC bound to a shelf number.
func (r *Registry) MACForShelf(number int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.shelves[number]
	if !ok {
		return "", fmt.Errorf("%w: shelf %d", ErrShelfNotFound, number)
	}
	return cached.MACAddress, nil
}

// ListShelves retrieves all shelves with their positions, ordered by
// shelf number.
func (r *Registry) ListShelves() []Shelf {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shelves := make([]Shelf, 0, len(r.shelves))
	for _, s := range r.shelves {
		shelves = append(shelves, *s.DeepCopy())
	}
	sort.Slice(shelves, func(i, j int) bool {
		return shelves[i].Number < shelves[j].Number
	})
	return shelves
}

// ShelfExists reports whether a shelf number is in use.
func (r *Registry) ShelfExists(number int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.shelves[number]
	return ok
}

// =============================================================================
// Positions
// =============================================================================

// checkNewPosition reports the first rule pos violates as a new position
// on shelf number. Caller must hold r.mu for reading.
func (r *Registry) checkNewPosition(number int, pos *Position) error {
	cached, ok := r.shelves[number]
	if !ok {
		return fmt.Errorf("%w: shelf %d", ErrShelfNotFound, number)
	}
	if cached.Position(pos.ID) != nil {
		return fmt.Errorf("%w: position %d on shelf %d", ErrPositionExists, pos.ID, number)
	}
	if err := ValidatePositionID(pos.ID); err != nil {
		return err
	}
	if err := ValidateLEDs(pos.LEDs); err != nil {
		return err
	}
	if conflictID, conflictLED, conflict := findLEDConflict(pos.LEDs, cached.Positions, -1); conflict {
		return fmt.Errorf("%w: led %d belongs to position %d", ErrLEDConflict, conflictLED, conflictID)
	}
	return nil
}

// checkUpdatedPosition reports the first rule pos violates as a
// replacement for an existing position, and returns that position.
// The overlap check excludes the position itself, so an update may keep
// or shrink its own range. Caller must hold r.mu for reading.
func (r *Registry) checkUpdatedPosition(number int, pos *Position) (*Position, error) {
	cached, ok := r.shelves[number]
	if !ok {
		return nil, fmt.Errorf("%w: shelf %d", ErrShelfNotFound, number)
	}
	existing := cached.Position(pos.ID)
	if existing == nil {
		return nil, fmt.Errorf("%w: position %d on shelf %d", ErrPositionNotFound, pos.ID, number)
	}
	if err := ValidateLEDs(pos.LEDs); err != nil {
		return nil, err
	}
	if conflictID, conflictLED, conflict := findLEDConflict(pos.LEDs, cached.Positions, pos.ID); conflict {
		return nil, fmt.Errorf("%w: led %d belongs to position %d", ErrLEDConflict, conflictLED, conflictID)
	}
	return existing, nil
}

// CheckNewPosition validates pos as a new position on shelf number
// without persisting anything. The gateway runs this before publishing a
// create command, so a request that could never be stored is rejected
// before it reaches a controller.
func (r *Registry) CheckNewPosition(number int, pos Position) error {
	pos.ShelfNumber = number
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkNewPosition(number, &pos)
}

// CheckUpdatedPosition validates pos as a replacement for an existing
// position without persisting anything.
func (r *Registry) CheckUpdatedPosition(number int, pos Position) error {
	pos.ShelfNumber = number
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.checkUpdatedPosition(number, &pos)
	return err
}

// AddPosition creates a position on a shelf. The id must be free on the
// shelf and the LED list must not overlap any other position there.
func (r *Registry) AddPosition(ctx context.Context, number int, pos Position) error {
	pos.ShelfNumber = number

	r.mu.RLock()
	err := r.checkNewPosition(number, &pos)
	r.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := r.repo.CreatePosition(ctx, &pos); err != nil {
		return err
	}

	r.storePosition(&pos)
	r.logger.Info("position added", "shelf", number, "position", pos.ID, "leds", len(pos.LEDs))
	return nil
}

// UpdatePosition replaces the LED list of an existing position.
func (r *Registry) UpdatePosition(ctx context.Context, number int, pos Position) error {
	pos.ShelfNumber = number

	r.mu.RLock()
	existing, err := r.checkUpdatedPosition(number, &pos)
	r.mu.RUnlock()
	if err != nil {
		return err
	}

	pos.CreatedAt = existing.CreatedAt
	if err := r.repo.UpdatePosition(ctx, &pos); err != nil {
		return err
	}

	r.storePosition(&pos)
	r.logger.Info("position updated", "shelf", number, "position", pos.ID, "leds", len(pos.LEDs))
	return nil
}

// DeletePosition removes a position from a shelf.
func (r *Registry) DeletePosition(ctx context.Context, number, id int) error {
	r.mu.RLock()
	cached, ok := r.shelves[number]
	exists := ok && cached.Position(id) != nil
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: shelf %d", ErrShelfNotFound, number)
	}
	if !exists {
		return fmt.Errorf("%w: position %d on shelf %d", ErrPositionNotFound, id, number)
	}

	if err := r.repo.DeletePosition(ctx, number, id); err != nil {
		return err
	}

	r.mu.Lock()
	if s, found := r.shelves[number]; found {
		updated := s.DeepCopy()
		for i := range updated.Positions {
			if updated.Positions[i].ID == id {
				updated.Positions = append(updated.Positions[:i], updated.Positions[i+1:]...)
				break
			}
		}
		updated.UpdatedAt = time.Now().UTC()
		r.shelves[number] = updated
	}
	r.mu.Unlock()

	r.logger.Info("position deleted", "shelf", number, "position", id)
	return nil
}

// Positions retrieves the positions of a shelf ordered by id.
func (r *Registry) Positions(number int) ([]Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.shelves[number]
	if !ok {
		return nil, fmt.Errorf("%w: shelf %d", ErrShelfNotFound, number)
	}

	positions := make([]Position, 0, len(cached.Positions))
	for i := range cached.Positions {
		positions = append(positions, *cached.Positions[i].DeepCopy())
	}
	return positions, nil
}

// PositionExists reports whether a position id is taken on a shelf.
func (r *Registry) PositionExists(number, id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.shelves[number]
	return ok && cached.Position(id) != nil
}

// LEDs returns the LED indices of a position.
func (r *Registry) LEDs(number, id int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cached, ok := r.shelves[number]
	if !ok {
		return nil, fmt.Errorf("%w: shelf %d", ErrShelfNotFound, number)
	}
	pos := cached.Position(id)
	if pos == nil {
		return nil, fmt.Errorf("%w: position %d on shelf %d", ErrPositionNotFound, id, number)
	}

	leds := make([]int, len(pos.LEDs))
	copy(leds, pos.LEDs)
	return leds, nil
}

// storePosition writes a position into the cached shelf, replacing any
// previous entry with the same id and keeping the list ordered.
func (r *Registry) storePosition(pos *Position) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached, ok := r.shelves[pos.ShelfNumber]
	if !ok {
		return
	}

	updated := cached.DeepCopy()
	replaced := false
	for i := range updated.Positions {
		if updated.Positions[i].ID == pos.ID {
			updated.Positions[i] = *pos.DeepCopy()
			replaced = true
			break
		}
	}
	if !replaced {
		updated.Positions = append(updated.Positions, *pos.DeepCopy())
		sort.Slice(updated.Positions, func(i, j int) bool {
			return updated.Positions[i].ID < updated.Positions[j].ID
		})
	}
	updated.UpdatedAt = time.Now().UTC()
	r.shelves[pos.ShelfNumber] = updated
}

// =============================================================================
// Introspection
// =============================================================================

// Stats holds registry counters for the health endpoint.
type Stats struct {
	Controllers int `json:"controllers"`
	Online      int `json:"online"`
	Unused      int `json:"unused"`
	Shelves     int `json:"shelves"`
	Positions   int `json:"positions"`
}

// Stats returns current registry counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Controllers: len(r.controllers),
		Shelves:     len(r.shelves),
	}
	for _, c := range r.controllers {
		if c.Online {
			stats.Online++
		}
		if !c.Used {
			stats.Unused++
		}
	}
	for _, s := range r.shelves {
		stats.Positions += len(s.Positions)
	}
	return stats
}
