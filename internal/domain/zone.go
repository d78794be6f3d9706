package domain

// Risk levels as declared by the route backend
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// ZoneStatus describes how a risk zone relates to the current journey
type ZoneStatus string

const (
	ZonePending   ZoneStatus = "pending"   // not yet approached
	ZoneTriggered ZoneStatus = "triggered" // an alert fired for this zone
	ZoneAvoided   ZoneStatus = "avoided"   // journey rerouted before reaching it
)

// RiskZone is a circular hazard area intersecting the planned route
type RiskZone struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Center    GeoPoint `json:"center"`
	RadiusKm  float64  `json:"radius_km"`
	RiskLevel string   `json:"risk_level"`
	// DistanceKm is the backend-computed minimum distance between the
	// route and the zone center, advisory only
	DistanceKm float64 `json:"distance_km"`
}

// ZoneView is a RiskZone annotated with its per-journey status
type ZoneView struct {
	RiskZone
	Status ZoneStatus `json:"status"`
}

// Alert is raised the first time the vehicle crosses a zone's trigger radius
type Alert struct {
	Zone          RiskZone `json:"zone"`
	DistanceM     float64  `json:"distance_m"`
	ImpactSummary string   `json:"impact_summary"`
}
