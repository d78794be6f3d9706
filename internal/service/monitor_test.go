package service

import (
	"strings"
	"testing"

	"github.com/smartconvoy/backend/internal/domain"
)

// zoneAt builds a 1 km zone centered on the given point
func zoneAt(id, name string, center domain.GeoPoint, level string) domain.RiskZone {
	return domain.RiskZone{
		ID:        id,
		Name:      name,
		Center:    center,
		RadiusKm:  1,
		RiskLevel: level,
	}
}

// pointAtMeters returns a point roughly the given distance due north of center
func pointAtMeters(center domain.GeoPoint, meters float64) domain.GeoPoint {
	return domain.GeoPoint{
		Lat: center.Lat + meters/111195,
		Lon: center.Lon,
	}
}

func TestMonitorFiresInsideTriggerRadius(t *testing.T) {
	center := domain.GeoPoint{Lat: 28.66, Lon: 77.15}
	zones := []domain.RiskZone{zoneAt("z1", "Ridge Pass", center, domain.RiskLevelHigh)}
	m := NewRiskMonitor()

	// Outside the 3 km trigger radius (1 km zone + 2 km buffer): no alert
	if alert := m.Observe(pointAtMeters(center, 3200), zones); alert != nil {
		t.Fatalf("alert fired at 3200 m, outside trigger radius: %+v", alert)
	}

	alert := m.Observe(pointAtMeters(center, 2800), zones)
	if alert == nil {
		t.Fatal("no alert at 2800 m, inside trigger radius")
	}
	if alert.Zone.ID != "z1" {
		t.Errorf("alert zone = %s, want z1", alert.Zone.ID)
	}
	if alert.DistanceM >= 3000 {
		t.Errorf("alert distance = %.0f m, want < 3000", alert.DistanceM)
	}
	if !strings.Contains(alert.ImpactSummary, "Ridge Pass") {
		t.Errorf("impact summary %q does not name the zone", alert.ImpactSummary)
	}
	if !strings.Contains(alert.ImpactSummary, domain.RiskLevelHigh) {
		t.Errorf("impact summary %q does not carry the risk level", alert.ImpactSummary)
	}
}

func TestMonitorSingleFirePerZone(t *testing.T) {
	center := domain.GeoPoint{Lat: 28.66, Lon: 77.15}
	zones := []domain.RiskZone{zoneAt("z1", "Ridge Pass", center, domain.RiskLevelMedium)}
	m := NewRiskMonitor()

	if m.Observe(pointAtMeters(center, 2500), zones) == nil {
		t.Fatal("first observation did not fire")
	}
	// Closer, inside, and leaving again: the ledger suppresses all of it
	for _, d := range []float64{1500, 200, 0, 1500, 2900} {
		if alert := m.Observe(pointAtMeters(center, d), zones); alert != nil {
			t.Fatalf("zone re-fired at %.0f m: %+v", d, alert)
		}
	}
	if !m.Triggered("z1") {
		t.Error("Triggered(z1) = false after firing")
	}
}

func TestMonitorFirstZoneInInputOrderWins(t *testing.T) {
	pos := domain.GeoPoint{Lat: 28.66, Lon: 77.15}
	zones := []domain.RiskZone{
		zoneAt("far", "Far Zone", pointAtMeters(pos, 2900), domain.RiskLevelLow),
		zoneAt("near", "Near Zone", pointAtMeters(pos, 500), domain.RiskLevelHigh),
	}
	m := NewRiskMonitor()

	first := m.Observe(pos, zones)
	if first == nil || first.Zone.ID != "far" {
		t.Fatalf("first alert = %+v, want input-order zone 'far'", first)
	}

	// The remaining zone fires on the following tick
	second := m.Observe(pos, zones)
	if second == nil || second.Zone.ID != "near" {
		t.Fatalf("second alert = %+v, want zone 'near'", second)
	}

	if m.Observe(pos, zones) != nil {
		t.Error("third observation fired with every zone in the ledger")
	}
}

func TestMonitorReset(t *testing.T) {
	center := domain.GeoPoint{Lat: 28.66, Lon: 77.15}
	zones := []domain.RiskZone{zoneAt("z1", "Ridge Pass", center, domain.RiskLevelLow)}
	m := NewRiskMonitor()

	if m.Observe(center, zones) == nil {
		t.Fatal("zone did not fire")
	}
	m.Reset()
	if m.Triggered("z1") {
		t.Error("ledger not cleared by Reset")
	}
	if m.Observe(center, zones) == nil {
		t.Error("zone did not fire again after Reset")
	}
}
