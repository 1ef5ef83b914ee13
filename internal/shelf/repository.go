package shelf

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for shelf persistence operations.
// This abstraction allows for different implementations (SQLite, mock)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetController retrieves a controller by MAC address.
	// Returns ErrControllerNotFound if it does not exist.
	GetController(ctx context.Context, mac string) (*Controller, error)

	// ListControllers retrieves all controllers ordered by MAC address.
	ListControllers(ctx context.Context) ([]Controller, error)

	// CreateController inserts a new controller record.
	// Returns ErrControllerExists if the MAC is already registered.
	CreateController(ctx context.Context, c *Controller) error

	// SetControllerOnline updates the online flag and last seen
	// timestamp. Returns ErrControllerNotFound if the MAC is unknown.
	SetControllerOnline(ctx context.Context, mac string, online bool, seen time.Time) error

	// MarkAllControllersOffline clears the online flag on every
	// controller. Called at startup before presence is re-learned.
	MarkAllControllersOffline(ctx context.Context) error

	// GetShelf retrieves a shelf with its positions.
	// Returns ErrShelfNotFound if the number does not exist.
	GetShelf(ctx context.Context, number int) (*Shelf, error)

	// ListShelves retrieves all shelves with their positions, ordered
	// by shelf number.
	ListShelves(ctx context.Context) ([]Shelf, error)

	// CreateShelf inserts a shelf and marks its controller used, in one
	// transaction. Returns ErrShelfExists for a taken number,
	// ErrControllerInUse for a MAC already serving another shelf, and
	// ErrControllerNotFound for an unregistered MAC.
	CreateShelf(ctx context.Context, s *Shelf) error

	// DeleteShelf removes a shelf and marks its controller unused, in
	// one transaction. Positions go with the shelf; the controller
	// record stays. Returns ErrShelfNotFound if the number is unknown.
	DeleteShelf(ctx context.Context, number int) error

	// ListPositions retrieves the positions of a shelf ordered by
	// position id.
	ListPositions(ctx context.Context, number int) ([]Position, error)

	// CreatePosition inserts a position. Returns ErrPositionExists if
	// the id is taken on the shelf and ErrShelfNotFound if the shelf
	// does not exist.
	CreatePosition(ctx context.Context, p *Position) error

	// UpdatePosition replaces the LED list of an existing position.
	// Returns ErrPositionNotFound if the id is unknown on the shelf.
	UpdatePosition(ctx context.Context, p *Position) error

	// DeletePosition removes a position. Returns ErrPositionNotFound if
	// the id is unknown on the shelf.
	DeletePosition(ctx context.Context, number, id int) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with foreign
// keys enabled; position rows cascade on shelf deletion.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// =============================================================================
// Controllers
// =============================================================================

// GetController retrieves a controller by MAC address.
func (r *SQLiteRepository) GetController(ctx context.Context, mac string) (*Controller, error) {
	query := `
		SELECT mac_address, used, online, first_seen, last_seen
		FROM controllers
		WHERE mac_address = ?`

	row := r.db.QueryRowContext(ctx, query, mac)
	controller, err := scanController(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrControllerNotFound
		}
		return nil, fmt.Errorf("querying controller: %w", err)
	}
	return controller, nil
}

// ListControllers retrieves all controllers ordered by MAC address.
func (r *SQLiteRepository) ListControllers(ctx context.Context) ([]Controller, error) {
	query := `
		SELECT mac_address, used, online, first_seen, last_seen
		FROM controllers
		ORDER BY mac_address`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying controllers: %w", err)
	}
	defer rows.Close()

	var controllers []Controller
	for rows.Next() {
		c, err := scanController(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning controller: %w", err)
		}
		controllers = append(controllers, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating controllers: %w", err)
	}

	return controllers, nil
}

// CreateController inserts a new controller record.
func (r *SQLiteRepository) CreateController(ctx context.Context, c *Controller) error {
	now := time.Now().UTC()
	if c.FirstSeen.IsZero() {
		c.FirstSeen = now
	}
	if c.LastSeen.IsZero() {
		c.LastSeen = now
	}

	query := `
		INSERT INTO controllers (mac_address, used, online, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		c.MACAddress,
		boolToInt(c.Used),
		boolToInt(c.Online),
		c.FirstSeen.Format(time.RFC3339),
		c.LastSeen.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err, "controllers.mac_address") {
			return ErrControllerExists
		}
		return fmt.Errorf("inserting controller: %w", err)
	}

	return nil
}

// SetControllerOnline updates the online flag and last seen timestamp.
func (r *SQLiteRepository) SetControllerOnline(ctx context.Context, mac string, online bool, seen time.Time) error {
	query := `
		UPDATE controllers
		SET online = ?, last_seen = ?
		WHERE mac_address = ?`

	result, err := r.db.ExecContext(ctx, query,
		boolToInt(online),
		seen.UTC().Format(time.RFC3339),
		mac,
	)
	if err != nil {
		return fmt.Errorf("updating controller presence: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrControllerNotFound
	}

	return nil
}

// MarkAllControllersOffline clears the online flag on every controller.
func (r *SQLiteRepository) MarkAllControllersOffline(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE controllers SET online = 0"); err != nil {
		return fmt.Errorf("marking controllers offline: %w", err)
	}
	return nil
}

// =============================================================================
// Shelves
// =============================================================================

// GetShelf retrieves a shelf with its positions.
func (r *SQLiteRepository) GetShelf(ctx context.Context, number int) (*Shelf, error) {
	query := `
		SELECT shelf_number, mac_address, created_at, updated_at
		FROM shelves
		WHERE shelf_number = ?`

	row := r.db.QueryRowContext(ctx, query, number)
	s, err := scanShelf(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShelfNotFound
		}
		return nil, fmt.Errorf("querying shelf: %w", err)
	}

	positions, err := r.ListPositions(ctx, number)
	if err != nil {
		return nil, err
	}
	s.Positions = positions

	return s, nil
}

// ListShelves retrieves all shelves with their positions.
func (r *SQLiteRepository) ListShelves(ctx context.Context) ([]Shelf, error) {
	query := `
		SELECT shelf_number, mac_address, created_at, updated_at
		FROM shelves
		ORDER BY shelf_number`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying shelves: %w", err)
	}
	defer rows.Close()

	var shelves []Shelf
	for rows.Next() {
		s, err := scanShelf(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning shelf: %w", err)
		}
		shelves = append(shelves, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shelves: %w", err)
	}

	// One query for all positions, grouped onto their shelves.
	byNumber := make(map[int]int, len(shelves))
	for i := range shelves {
		shelves[i].Positions = []Position{}
		byNumber[shelves[i].Number] = i
	}

	positions, err := r.queryPositions(ctx, `
		SELECT shelf_number, position_id, leds, created_at, updated_at
		FROM positions
		ORDER BY shelf_number, position_id`)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if idx, ok := byNumber[positions[i].ShelfNumber]; ok {
			shelves[idx].Positions = append(shelves[idx].Positions, positions[i])
		}
	}

	return shelves, nil
}

// CreateShelf inserts a shelf and marks its controller used.
func (r *SQLiteRepository) CreateShelf(ctx context.Context, s *Shelf) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shelves (shelf_number, mac_address, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		s.Number,
		s.MACAddress,
		s.CreatedAt.Format(time.RFC3339),
		s.UpdatedAt.Format(time.RFC3339),
	)
	switch {
	case isUniqueConstraintError(err, "shelves.shelf_number"):
		return ErrShelfExists
	case isUniqueConstraintError(err, "shelves.mac_address"):
		return ErrControllerInUse
	case isForeignKeyError(err):
		return ErrControllerNotFound
	case err != nil:
		return fmt.Errorf("inserting shelf: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE controllers SET used = 1 WHERE mac_address = ?", s.MACAddress)
	if err != nil {
		return fmt.Errorf("marking controller used: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrControllerNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing shelf: %w", err)
	}
	return nil
}

// DeleteShelf removes a shelf and marks its controller unused.
// The controller record itself is kept; only the binding is released.
func (r *SQLiteRepository) DeleteShelf(ctx context.Context, number int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var mac string
	err = tx.QueryRowContext(ctx,
		"SELECT mac_address FROM shelves WHERE shelf_number = ?", number).Scan(&mac)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShelfNotFound
	}
	if err != nil {
		return fmt.Errorf("querying shelf: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM shelves WHERE shelf_number = ?", number); err != nil {
		return fmt.Errorf("deleting shelf: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE controllers SET used = 0 WHERE mac_address = ?", mac); err != nil {
		return fmt.Errorf("marking controller unused: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing shelf deletion: %w", err)
	}
	return nil
}

// =============================================================================
// Positions
// =============================================================================

// ListPositions retrieves the positions of a shelf ordered by id.
func (r *SQLiteRepository) ListPositions(ctx context.Context, number int) ([]Position, error) {
	return r.queryPositions(ctx, `
		SELECT shelf_number, position_id, leds, created_at, updated_at
		FROM positions
		WHERE shelf_number = ?
		ORDER BY position_id`, number)
}

// CreatePosition inserts a position.
func (r *SQLiteRepository) CreatePosition(ctx context.Context, p *Position) error {
	ledsJSON, err := json.Marshal(p.LEDs)
	if err != nil {
		return fmt.Errorf("marshalling leds: %w", err)
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO positions (shelf_number, position_id, leds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		p.ShelfNumber,
		p.ID,
		string(ledsJSON),
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	switch {
	case isUniqueConstraintError(err, "positions.shelf_number"):
		return ErrPositionExists
	case isForeignKeyError(err):
		return ErrShelfNotFound
	case err != nil:
		return fmt.Errorf("inserting position: %w", err)
	}

	return nil
}

// UpdatePosition replaces the LED list of an existing position.
func (r *SQLiteRepository) UpdatePosition(ctx context.Context, p *Position) error {
	ledsJSON, err := json.Marshal(p.LEDs)
	if err != nil {
		return fmt.Errorf("marshalling leds: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE positions
		SET leds = ?, updated_at = ?
		WHERE shelf_number = ? AND position_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(ledsJSON),
		p.UpdatedAt.Format(time.RFC3339),
		p.ShelfNumber,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating position: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPositionNotFound
	}

	return nil
}

// DeletePosition removes a position.
func (r *SQLiteRepository) DeletePosition(ctx context.Context, number, id int) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM positions WHERE shelf_number = ? AND position_id = ?", number, id)
	if err != nil {
		return fmt.Errorf("deleting position: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPositionNotFound
	}

	return nil
}

// queryPositions executes a position query and returns the results.
// The slice is never nil so empty shelves marshal as "Positions": [].
func (r *SQLiteRepository) queryPositions(ctx context.Context, query string, args ...any) ([]Position, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()

	positions := []Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		positions = append(positions, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating positions: %w", err)
	}

	return positions, nil
}

// =============================================================================
// Scanning helpers
// =============================================================================

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanController scans a row or rows result into a Controller.
func scanController(scanner rowScanner) (*Controller, error) {
	var c Controller
	var used, online int
	var firstSeen, lastSeen string

	if err := scanner.Scan(&c.MACAddress, &used, &online, &firstSeen, &lastSeen); err != nil {
		return nil, err
	}

	c.Used = used != 0
	c.Online = online != 0

	var parseErr error
	c.FirstSeen, parseErr = time.Parse(time.RFC3339, firstSeen)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing first_seen: %w", parseErr)
	}
	c.LastSeen, parseErr = time.Parse(time.RFC3339, lastSeen)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing last_seen: %w", parseErr)
	}

	return &c, nil
}

// scanShelf scans a row or rows result into a Shelf without positions.
func scanShelf(scanner rowScanner) (*Shelf, error) {
	var s Shelf
	var createdAt, updatedAt string

	if err := scanner.Scan(&s.Number, &s.MACAddress, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var parseErr error
	s.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	s.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	s.Positions = []Position{}
	return &s, nil
}

// scanPosition scans a row or rows result into a Position.
func scanPosition(scanner rowScanner) (*Position, error) {
	var p Position
	var ledsJSON string
	var createdAt, updatedAt string

	if err := scanner.Scan(&p.ShelfNumber, &p.ID, &ledsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(ledsJSON), &p.LEDs); err != nil {
		return nil, fmt.Errorf("unmarshalling leds: %w", err)
	}

	var parseErr error
	p.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	p.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &p, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique
// constraint violation on the given column (table.column form).
func isUniqueConstraintError(err error, column string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

// isForeignKeyError checks if an error is a SQLite foreign key violation.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
