package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/smartconvoy/backend/internal/domain"
)

// JourneyManager is the registry of live journeys. One supervisor per
// journey; the manager only routes calls, supervisors own all journey state.
type JourneyManager struct {
	mu       sync.Mutex
	routes   *RouteService
	repo     domain.JourneyRepository
	journeys map[string]*Supervisor
}

// NewJourneyManager creates an empty journey registry
func NewJourneyManager(routes *RouteService, repo domain.JourneyRepository) *JourneyManager {
	return &JourneyManager{
		routes:   routes,
		repo:     repo,
		journeys: make(map[string]*Supervisor),
	}
}

// Launch fetches the route for a start/end pair and registers a new
// journey. The supervisor is returned in the ready state; the caller starts
// travel explicitly.
func (m *JourneyManager) Launch(ctx context.Context, start, end domain.GeoPoint, cfg SupervisorConfig) (*Supervisor, error) {
	id := uuid.NewString()
	sup := NewSupervisor(id, m.routes, m.repo, cfg)
	if err := sup.Load(ctx, start, end); err != nil {
		return sup, fmt.Errorf("journey_manager: failed to load route: %w", err)
	}

	m.mu.Lock()
	m.journeys[id] = sup
	m.mu.Unlock()
	return sup, nil
}

// LaunchForConvoy resolves a convoy's source and destination, then launches
// a journey between them
func (m *JourneyManager) LaunchForConvoy(ctx context.Context, convoyID string, cfg SupervisorConfig) (*Supervisor, error) {
	convoy, err := m.routes.FetchConvoy(ctx, convoyID)
	if err != nil {
		return nil, fmt.Errorf("journey_manager: failed to fetch convoy: %w", err)
	}
	return m.Launch(ctx, convoy.Source.Point(), convoy.Destination.Point(), cfg)
}

// Get returns the supervisor for a journey id
func (m *JourneyManager) Get(id string) (*Supervisor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sup, ok := m.journeys[id]
	if !ok {
		return nil, fmt.Errorf("journey_manager: %w: %s", domain.ErrJourneyNotFound, id)
	}
	return sup, nil
}

// Remove stops a journey and drops it from the registry
func (m *JourneyManager) Remove(id string) error {
	m.mu.Lock()
	sup, ok := m.journeys[id]
	if ok {
		delete(m.journeys, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("journey_manager: %w: %s", domain.ErrJourneyNotFound, id)
	}
	sup.Stop()
	return nil
}

// StopAll stops every live journey and waits for pending event writes.
// Call during graceful shutdown.
func (m *JourneyManager) StopAll() {
	m.mu.Lock()
	sups := make([]*Supervisor, 0, len(m.journeys))
	for _, sup := range m.journeys {
		sups = append(sups, sup)
	}
	m.journeys = make(map[string]*Supervisor)
	m.mu.Unlock()

	for _, sup := range sups {
		sup.Stop()
		sup.WaitBackground()
	}
}
