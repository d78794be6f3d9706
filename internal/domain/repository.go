package domain

import (
	"context"
	"time"
)

// JourneyRepository defines the interface for journey event persistence.
// This follows the Dependency Inversion Principle - domain defines the interface
type JourneyRepository interface {
	// SaveEvent persists one journey event
	SaveEvent(ctx context.Context, event JourneyEvent) error

	// GetJourneyEvents retrieves the event log for one journey
	GetJourneyEvents(ctx context.Context, journeyID string) ([]JourneyEvent, error)

	// GetRecentEvents retrieves events across journeys within a time range
	GetRecentEvents(ctx context.Context, from, to time.Time) ([]JourneyEvent, error)

	// Health checks store connectivity
	Health(ctx context.Context) error
}
