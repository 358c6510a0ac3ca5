// Package store persists committed labels in SQLite, keyed by target.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/regionkit/internal/labels"
)

// ErrNotFound is returned when no labels are stored for a target.
var ErrNotFound = errors.New("labels not found")

// Record is one stored labeling result. ID changes on every save.
type Record struct {
	ID        string
	Target    string
	Labels    labels.Labels
	UpdatedAt time.Time
}

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &Store{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS labels (
		target TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.conn.Exec(query)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Save validates l and stores it under target, replacing earlier labels.
func (s *Store) Save(ctx context.Context, target string, l labels.Labels) (Record, error) {
	if target == "" {
		return Record{}, fmt.Errorf("save labels: empty target")
	}
	if err := labels.Validate(l); err != nil {
		return Record{}, fmt.Errorf("save labels for %s: %w", target, err)
	}
	payload, err := json.Marshal(l)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal labels: %w", err)
	}
	rec := Record{
		ID:        uuid.New().String(),
		Target:    target,
		Labels:    l,
		UpdatedAt: s.now().UTC(),
	}
	query := `
		INSERT INTO labels (target, id, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(target) DO UPDATE SET
			id = excluded.id,
			payload = excluded.payload,
			updated_at = excluded.updated_at`
	_, err = s.conn.ExecContext(ctx, query, rec.Target, rec.ID, string(payload), rec.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Record{}, fmt.Errorf("save labels for %s: %w", target, err)
	}
	return rec, nil
}

// Load returns the labels stored for target.
func (s *Store) Load(ctx context.Context, target string) (Record, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT target, id, payload, updated_at FROM labels WHERE target = ?`, target)
	var rec Record
	var payload, updated string
	if err := row.Scan(&rec.Target, &rec.ID, &payload, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%s: %w", target, ErrNotFound)
		}
		return Record{}, fmt.Errorf("load labels for %s: %w", target, err)
	}
	if err := json.Unmarshal([]byte(payload), &rec.Labels); err != nil {
		return Record{}, fmt.Errorf("decode labels for %s: %w", target, err)
	}
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return Record{}, fmt.Errorf("decode timestamp for %s: %w", target, err)
	}
	rec.UpdatedAt = t
	return rec, nil
}

// List returns every stored record ordered by target. Labels are not
// decoded.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT target, id, updated_at FROM labels ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var updated string
		if err := rows.Scan(&rec.Target, &rec.ID, &updated); err != nil {
			return nil, fmt.Errorf("list labels: %w", err)
		}
		if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("decode timestamp for %s: %w", rec.Target, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the labels stored for target.
func (s *Store) Delete(ctx context.Context, target string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM labels WHERE target = ?`, target)
	if err != nil {
		return fmt.Errorf("delete labels for %s: %w", target, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete labels for %s: %w", target, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", target, ErrNotFound)
	}
	return nil
}
