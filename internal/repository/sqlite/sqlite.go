package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smartconvoy/backend/internal/domain"
)

// SQLiteRepository implements domain.JourneyRepository on a local SQLite
// file. Used when no DATABASE_URL is configured; zero-CGO driver so the
// binary stays a single static artifact.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at dbPath
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the journey_events table if it does not exist
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS journey_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			journey_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			zone_id TEXT NOT NULL DEFAULT '',
			zone_name TEXT NOT NULL DEFAULT '',
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_journey_events_journey
			ON journey_events (journey_id, created_at);
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite: failed to ensure schema: %w", err)
	}
	return nil
}

// SaveEvent persists one journey event
func (r *SQLiteRepository) SaveEvent(ctx context.Context, event domain.JourneyEvent) error {
	query := `
		INSERT INTO journey_events (
			journey_id, event_type, zone_id, zone_name, lat, lon, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.JourneyID, event.Type, event.ZoneID, event.ZoneName,
		event.Lat, event.Lon, event.Detail, event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save journey event: %w", err)
	}

	return nil
}

// GetJourneyEvents retrieves the event log for one journey
func (r *SQLiteRepository) GetJourneyEvents(ctx context.Context, journeyID string) ([]domain.JourneyEvent, error) {
	query := `
		SELECT journey_id, event_type, zone_id, zone_name, lat, lon, detail, created_at
		FROM journey_events
		WHERE journey_id = ?
		ORDER BY created_at ASC
		LIMIT 500
	`

	rows, err := r.db.QueryContext(ctx, query, journeyID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query journey events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetRecentEvents retrieves events across journeys within a time range
func (r *SQLiteRepository) GetRecentEvents(ctx context.Context, from, to time.Time) ([]domain.JourneyEvent, error) {
	query := `
		SELECT journey_id, event_type, zone_id, zone_name, lat, lon, detail, created_at
		FROM journey_events
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := r.db.QueryContext(ctx, query,
		from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Health checks database connectivity
func (r *SQLiteRepository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]domain.JourneyEvent, error) {
	var results []domain.JourneyEvent
	for rows.Next() {
		var e domain.JourneyEvent
		var createdAt string
		err := rows.Scan(
			&e.JourneyID, &e.Type, &e.ZoneID, &e.ZoneName,
			&e.Lat, &e.Lon, &e.Detail, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan journey event: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.Timestamp = t
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
