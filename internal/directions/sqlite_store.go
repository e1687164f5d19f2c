package directions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/chargeroute/chargeroute/internal/location"
)

const directionsSchema = `
CREATE TABLE IF NOT EXISTS directions_cache (
	from_id          INTEGER NOT NULL,
	to_id            INTEGER NOT NULL,
	distance_meters  REAL    NOT NULL,
	duration_seconds REAL    NOT NULL,
	geometry         TEXT    NOT NULL,
	PRIMARY KEY (from_id, to_id)
);`

// SQLiteStore persists entries in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at path and ensures the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates the directions table if needed.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, directionsSchema); err != nil {
		return fmt.Errorf("migrate directions cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns every stored entry.
func (s *SQLiteStore) Load(ctx context.Context) (map[Key]Entry, error) {
	if s.db == nil {
		return nil, errors.New("directions cache: db is nil")
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT from_id, to_id, distance_meters, duration_seconds, geometry
	FROM directions_cache;
	`)
	if err != nil {
		return nil, fmt.Errorf("load directions cache: query: %w", err)
	}
	defer rows.Close()

	out := make(map[Key]Entry)
	for rows.Next() {
		var (
			from, to int64
			e        Entry
			geometry string
		)
		if err := rows.Scan(&from, &to, &e.DistanceMeters, &e.DurationSeconds, &geometry); err != nil {
			return nil, fmt.Errorf("load directions cache: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(geometry), &e.Geometry); err != nil {
			return nil, fmt.Errorf("load directions cache: geometry %d-%d: %w", from, to, err)
		}
		out[Key{From: location.ID(from), To: location.ID(to)}] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load directions cache: row iteration: %w", err)
	}
	return out, nil
}

// Put inserts or replaces one entry.
func (s *SQLiteStore) Put(ctx context.Context, key Key, entry Entry) error {
	if s.db == nil {
		return errors.New("directions cache: db is nil")
	}

	geometry, err := json.Marshal(entry.Geometry)
	if err != nil {
		return fmt.Errorf("insert directions cache: encode geometry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO directions_cache (
		from_id, to_id, distance_meters, duration_seconds, geometry
	)
	VALUES (?, ?, ?, ?, ?);
	`, int64(key.From), int64(key.To), entry.DistanceMeters, entry.DurationSeconds, string(geometry))
	if err != nil {
		return fmt.Errorf("insert directions cache %s: %w", key, err)
	}
	return nil
}
