package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartconvoy/backend/internal/domain"
)

// PostgresRepository implements domain.JourneyRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the journey_events table if it does not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS journey_events (
			id BIGSERIAL PRIMARY KEY,
			journey_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			zone_id TEXT NOT NULL DEFAULT '',
			zone_name TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_journey_events_journey
			ON journey_events (journey_id, created_at);
	`

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres: failed to ensure schema: %w", err)
	}
	return nil
}

// SaveEvent persists one journey event to PostgreSQL
func (r *PostgresRepository) SaveEvent(ctx context.Context, event domain.JourneyEvent) error {
	query := `
		INSERT INTO journey_events (
			journey_id, event_type, zone_id, zone_name, lat, lon, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		event.JourneyID, event.Type, event.ZoneID, event.ZoneName,
		event.Lat, event.Lon, event.Detail, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save journey event: %w", err)
	}

	return nil
}

// GetJourneyEvents retrieves the event log for one journey
func (r *PostgresRepository) GetJourneyEvents(ctx context.Context, journeyID string) ([]domain.JourneyEvent, error) {
	query := `
		SELECT journey_id, event_type, zone_id, zone_name, lat, lon, detail, created_at
		FROM journey_events
		WHERE journey_id = $1
		ORDER BY created_at ASC
		LIMIT 500
	`

	rows, err := r.pool.Query(ctx, query, journeyID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query journey events: %w", err)
	}
	defer rows.Close()

	var results []domain.JourneyEvent
	for rows.Next() {
		var e domain.JourneyEvent
		err := rows.Scan(
			&e.JourneyID, &e.Type, &e.ZoneID, &e.ZoneName,
			&e.Lat, &e.Lon, &e.Detail, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan journey event: %w", err)
		}
		results = append(results, e)
	}

	return results, nil
}

// GetRecentEvents retrieves events across journeys within a time range
func (r *PostgresRepository) GetRecentEvents(ctx context.Context, from, to time.Time) ([]domain.JourneyEvent, error) {
	query := `
		SELECT journey_id, event_type, zone_id, zone_name, lat, lon, detail, created_at
		FROM journey_events
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query recent events: %w", err)
	}
	defer rows.Close()

	var results []domain.JourneyEvent
	for rows.Next() {
		var e domain.JourneyEvent
		err := rows.Scan(
			&e.JourneyID, &e.Type, &e.ZoneID, &e.ZoneName,
			&e.Lat, &e.Lon, &e.Detail, &e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan journey event: %w", err)
		}
		results = append(results, e)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
