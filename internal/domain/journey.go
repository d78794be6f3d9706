package domain

import "time"

// JourneyState is the supervisor state machine tag
type JourneyState string

const (
	StateLoading   JourneyState = "loading"
	StateReady     JourneyState = "ready"
	StateTraveling JourneyState = "traveling"
	StateAlerted   JourneyState = "alerted"
	StateRerouting JourneyState = "rerouting"
	StateCompleted JourneyState = "completed"
	StateFailed    JourneyState = "failed"
	StateStopped   JourneyState = "stopped"
)

// RouteVariant identifies which polyline the journey is traveling
type RouteVariant string

const (
	VariantOriginal RouteVariant = "original"
	VariantSafe     RouteVariant = "safe"
)

// Decision is the operator response to an active alert
type Decision string

const (
	DecisionIgnore  Decision = "ignore"
	DecisionReroute Decision = "reroute"
)

// RoutePayload is the decoded route resource from the route backend
type RoutePayload struct {
	OriginalRoute []GeoPoint `json:"original_route"`
	SafeRoute     []GeoPoint `json:"safe_route,omitempty"`
	DangerPoints  []RiskZone `json:"danger_points"`
	DistanceM     float64    `json:"distance_m"`
	ETASeconds    float64    `json:"eta_seconds"`
}

// ConvoyEndpoint is one end of a convoy's planned transit
type ConvoyEndpoint struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Place string  `json:"place"`
}

// Point converts the endpoint to a GeoPoint
func (e ConvoyEndpoint) Point() GeoPoint {
	return GeoPoint{Lat: e.Lat, Lon: e.Lon}
}

// Convoy is the convoy resource consumed to launch a journey
type Convoy struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Source      ConvoyEndpoint `json:"source"`
	Destination ConvoyEndpoint `json:"destination"`
}

// SimulatorUpdate is one published step of the movement simulator
type SimulatorUpdate struct {
	Position            GeoPoint  `json:"position"`
	SegmentIndex        int       `json:"segment_index"`
	SegmentProgress     float64   `json:"segment_progress"`
	BearingDeg          float64   `json:"bearing_deg"`
	DistanceRemainingKm float64   `json:"distance_remaining_km"`
	ETAMinutes          int       `json:"eta_minutes"`
	Finished            bool      `json:"finished"`
	At                  time.Time `json:"at"`
}

// SupervisorSnapshot is the reactive view-model: the only surface
// presentation clients consume
type SupervisorSnapshot struct {
	State               JourneyState `json:"state"`
	ActiveVariant       RouteVariant `json:"active_variant"`
	Position            *GeoPoint    `json:"position"`
	BearingDeg          float64      `json:"bearing_deg"`
	ETAMinutes          int          `json:"eta_minutes"`
	DistanceRemainingKm float64      `json:"distance_remaining_km"`
	TraveledPolyline    []GeoPoint   `json:"traveled_polyline"`
	RemainingPolyline   []GeoPoint   `json:"remaining_polyline"`
	Zones               []ZoneView   `json:"zones"`
	Alert               *Alert       `json:"alert"`
	Error               string       `json:"error,omitempty"`
}

// Journey event types persisted for the operations log
const (
	EventStarted   = "started"
	EventAlerted   = "alerted"
	EventIgnored   = "ignored"
	EventRerouted  = "rerouted"
	EventCompleted = "completed"
	EventFailed    = "failed"
	EventStopped   = "stopped"
)

// JourneyEvent is one row of the journey operations log
type JourneyEvent struct {
	JourneyID string    `json:"journey_id"`
	Type      string    `json:"type"`
	ZoneID    string    `json:"zone_id,omitempty"`
	ZoneName  string    `json:"zone_name,omitempty"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
