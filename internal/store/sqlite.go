package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record lookup misses.
var ErrNotFound = errors.New("weather record not found")

// Record is one persisted historical query result. WeatherJSON is opaque to
// the store; only the caller that produced it ever inspects it.
type Record struct {
	ID          string  `json:"id"`
	Location    string  `json:"location"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	WeatherJSON string  `json:"weather_json"`
	CreatedAt   string  `json:"created_at"`
}

// UpdateFields is a tri-state partial update: a nil field means "leave
// unchanged", never "clear".
type UpdateFields struct {
	Location    *string
	StartDate   *string
	EndDate     *string
	WeatherJSON *string
}

const schema = `
CREATE TABLE IF NOT EXISTS weather_records (
	id TEXT PRIMARY KEY,
	location TEXT NOT NULL,
	start_date TEXT,
	end_date TEXT,
	weather_json TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// Store is a SQLite-backed record store.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open opens (creating if needed) the SQLite database at path and ensures the
// schema exists.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new record and returns its generated id.
func (s *Store) Create(ctx context.Context, location string, startDate, endDate *string, weatherJSON string) (string, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO weather_records (id, location, start_date, end_date, weather_json, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, location, startDate, endDate, weatherJSON, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert weather record: %w", err)
	}

	return id, nil
}

// All returns every record, newest first.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, location, start_date, end_date, weather_json, created_at FROM weather_records ORDER BY created_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query weather records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weather records: %w", err)
	}

	return records, nil
}

// Get returns one record by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, location, start_date, end_date, weather_json, created_at FROM weather_records WHERE id = ?", id,
	)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update applies a partial update with coalesce-on-write semantics: only
// non-nil fields overwrite. Updating a nonexistent id is a silent no-op.
func (s *Store) Update(ctx context.Context, id string, fields UpdateFields) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE weather_records
		SET location = COALESCE(?, location),
		    start_date = COALESCE(?, start_date),
		    end_date = COALESCE(?, end_date),
		    weather_json = COALESCE(?, weather_json)
		WHERE id = ?`,
		fields.Location, fields.StartDate, fields.EndDate, fields.WeatherJSON, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update weather record: %w", err)
	}
	return nil
}

// Delete removes a record. Deleting a nonexistent id is a silent no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM weather_records WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete weather record: %w", err)
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var rec Record
	var startDate, endDate sql.NullString

	if err := scan(&rec.ID, &rec.Location, &startDate, &endDate, &rec.WeatherJSON, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("failed to scan weather record: %w", err)
	}

	if startDate.Valid {
		rec.StartDate = &startDate.String
	}
	if endDate.Valid {
		rec.EndDate = &endDate.String
	}

	return rec, nil
}
