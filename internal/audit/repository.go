// Package audit provides access to the command_audit table for
// recording and querying command delivery history.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Outcomes of a command exchange.
const (
	OutcomeAcked     = "acked"
	OutcomeTimeout   = "timeout"
	OutcomeTransport = "transport_error"
)

// Record represents a single command exchange with a controller,
// successful or not.
type Record struct {
	ID        int64     `json:"id"`
	MAC       string    `json:"mac_address"`
	Class     string    `json:"class"`
	Operation string    `json:"operation"`
	Outcome   string    `json:"outcome"`
	LatencyMS int64     `json:"latency_ms"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which records to return.
type Filter struct {
	MAC     string // optional: filter by controller MAC
	Class   string // optional: filter by command class (light, config)
	Outcome string // optional: filter by outcome (acked, timeout, transport_error)
	Limit   int    // default 50, max 200
	Offset  int    // pagination offset
}

// ListResult contains the paginated command audit results.
type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository defines the interface for command audit operations.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores command audit records in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new command audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a command audit record. CreatedAt is generated if zero
// and the assigned ID is written back.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO command_audit (mac_address, class, operation, outcome, latency_ms, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.MAC, rec.Class, rec.Operation, rec.Outcome, rec.LatencyMS,
		nullableString(rec.Detail),
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting command audit record: %w", err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading command audit id: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns command audit records matching the filter, most recent
// first. Insertion order breaks ties within a second.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.MAC != "" {
		conditions = append(conditions, "mac_address = ?")
		args = append(args, filter.MAC)
	}
	if filter.Class != "" {
		conditions = append(conditions, "class = ?")
		args = append(args, filter.Class)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE clause is assembled from parameterised conditions only.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM command_audit %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command audit records: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, mac_address, class, operation, outcome, latency_ms, detail, created_at FROM command_audit %s ORDER BY id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command audit records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var detail sql.NullString
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.MAC, &rec.Class, &rec.Operation,
			&rec.Outcome, &rec.LatencyMS, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command audit record: %w", err)
		}

		if detail.Valid {
			rec.Detail = detail.String
		}

		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing command audit timestamp %q: %w", createdAt, err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command audit records: %w", err)
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
