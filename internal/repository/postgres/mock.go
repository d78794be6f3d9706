package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/smartconvoy/backend/internal/domain"
)

// MockRepository implements domain.JourneyRepository for testing/demo mode.
// Events are kept in memory so the journey log endpoints still work without
// a database.
type MockRepository struct {
	mu     sync.Mutex
	events []domain.JourneyEvent
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveEvent records the event in memory
func (r *MockRepository) SaveEvent(ctx context.Context, event domain.JourneyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// GetJourneyEvents returns the in-memory log for one journey
func (r *MockRepository) GetJourneyEvents(ctx context.Context, journeyID string) ([]domain.JourneyEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var results []domain.JourneyEvent
	for _, e := range r.events {
		if e.JourneyID == journeyID {
			results = append(results, e)
		}
	}
	return results, nil
}

// GetRecentEvents returns in-memory events within a time range
func (r *MockRepository) GetRecentEvents(ctx context.Context, from, to time.Time) ([]domain.JourneyEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var results []domain.JourneyEvent
	for _, e := range r.events {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			results = append(results, e)
		}
	}
	return results, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
