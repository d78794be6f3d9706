package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartconvoy/backend/internal/domain"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return repo
}

func TestSaveAndGetJourneyEvents(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	events := []domain.JourneyEvent{
		{JourneyID: "j1", Type: domain.EventStarted, Lat: 28.6139, Lon: 77.2090, Timestamp: base},
		{JourneyID: "j1", Type: domain.EventAlerted, ZoneID: "z1", ZoneName: "Ridge Pass", Lat: 28.6480, Lon: 77.1650, Detail: "high-risk zone ahead", Timestamp: base.Add(2 * time.Minute)},
		{JourneyID: "j2", Type: domain.EventStarted, Lat: 28.7041, Lon: 77.1025, Timestamp: base.Add(time.Minute)},
	}
	for _, e := range events {
		if err := repo.SaveEvent(ctx, e); err != nil {
			t.Fatalf("SaveEvent(%s) error = %v", e.Type, err)
		}
	}

	got, err := repo.GetJourneyEvents(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJourneyEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	// Ordered oldest first
	if got[0].Type != domain.EventStarted || got[1].Type != domain.EventAlerted {
		t.Errorf("order = %s, %s", got[0].Type, got[1].Type)
	}
	if got[1].ZoneID != "z1" || got[1].ZoneName != "Ridge Pass" || got[1].Detail != "high-risk zone ahead" {
		t.Errorf("alert event = %+v", got[1])
	}
	if !got[0].Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, base)
	}
}

func TestGetJourneyEventsEmpty(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.GetJourneyEvents(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetJourneyEvents() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d events, want none", len(got))
	}
}

func TestGetRecentEventsWindow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for _, e := range []domain.JourneyEvent{
		{JourneyID: "j1", Type: domain.EventStarted, Lat: 28.61, Lon: 77.21, Timestamp: base.Add(-48 * time.Hour)},
		{JourneyID: "j1", Type: domain.EventCompleted, Lat: 28.70, Lon: 77.10, Timestamp: base.Add(-time.Hour)},
		{JourneyID: "j2", Type: domain.EventStarted, Lat: 28.61, Lon: 77.21, Timestamp: base.Add(-30 * time.Minute)},
	} {
		if err := repo.SaveEvent(ctx, e); err != nil {
			t.Fatalf("SaveEvent() error = %v", err)
		}
	}

	got, err := repo.GetRecentEvents(ctx, base.Add(-24*time.Hour), base)
	if err != nil {
		t.Fatalf("GetRecentEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 inside the window", len(got))
	}
	// Ordered newest first
	if got[0].JourneyID != "j2" || got[1].JourneyID != "j1" {
		t.Errorf("order = %s, %s", got[0].JourneyID, got[1].JourneyID)
	}
}

func TestHealth(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}
