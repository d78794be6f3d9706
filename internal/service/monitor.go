package service

import (
	"fmt"

	"github.com/smartconvoy/backend/internal/domain"
)

// ApproachBufferMeters is the early-warning cushion outside a zone's
// declared hazard circle
const ApproachBufferMeters = 2000.0

// RiskMonitor raises a single alert the first time the vehicle crosses a
// risk zone's trigger radius. Fired zone ids are kept in a ledger so a zone
// never alerts twice per journey.
type RiskMonitor struct {
	fired map[string]struct{}
}

// NewRiskMonitor creates a monitor with an empty ledger
func NewRiskMonitor() *RiskMonitor {
	return &RiskMonitor{fired: make(map[string]struct{})}
}

// Observe checks the position against every zone not yet in the ledger.
// The first zone in input order within its trigger radius wins; remaining
// zones are left for subsequent ticks.
func (m *RiskMonitor) Observe(position domain.GeoPoint, zones []domain.RiskZone) *domain.Alert {
	for _, zone := range zones {
		if _, done := m.fired[zone.ID]; done {
			continue
		}
		d := domain.DistanceMeters(position, zone.Center)
		trigger := zone.RadiusKm*1000 + ApproachBufferMeters
		if d < trigger {
			m.fired[zone.ID] = struct{}{}
			return &domain.Alert{
				Zone:          zone,
				DistanceM:     d,
				ImpactSummary: impactSummary(zone, d),
			}
		}
	}
	return nil
}

// Triggered reports whether a zone has already fired this journey
func (m *RiskMonitor) Triggered(zoneID string) bool {
	_, ok := m.fired[zoneID]
	return ok
}

// Reset clears the ledger when a new journey begins on a route
func (m *RiskMonitor) Reset() {
	m.fired = make(map[string]struct{})
}

func impactSummary(zone domain.RiskZone, distanceM float64) string {
	return fmt.Sprintf("%s-risk zone %q %.1f km ahead of convoy", zone.RiskLevel, zone.Name, distanceM/1000)
}
