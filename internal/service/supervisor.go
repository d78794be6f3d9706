package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/smartconvoy/backend/internal/domain"
	"github.com/smartconvoy/backend/pkg/utils"
)

// reroutePrependMeters is the separation below which the safe route's first
// point is treated as the current position and not duplicated
const reroutePrependMeters = 1.0

// SupervisorConfig carries the per-journey tunables
type SupervisorConfig struct {
	SpeedKmh      float64
	TimeScale     float64
	FrameInterval time.Duration
}

// Supervisor coordinates one journey: it owns the simulator and the risk
// monitor, consumes route fetches, applies operator decisions, and exposes
// the snapshot that rendering clients consume. It is the single writer of
// journey state; every mutation happens under its mutex.
type Supervisor struct {
	mu sync.Mutex

	id     string
	routes *RouteService
	repo   domain.JourneyRepository
	cfg    SupervisorConfig

	state   domain.JourneyState
	variant domain.RouteVariant
	payload *domain.RoutePayload
	sim     *Simulator
	monitor *RiskMonitor

	lastUpdate *domain.SimulatorUpdate
	alert      *domain.Alert
	errMsg     string

	// zones skipped by a reroute; shown as avoided until they trigger
	avoided map[string]struct{}

	fetchCancel context.CancelFunc
	loopCancel  context.CancelFunc

	wgBg sync.WaitGroup // background event writes
}

// NewSupervisor creates a supervisor in the loading state
func NewSupervisor(id string, routes *RouteService, repo domain.JourneyRepository, cfg SupervisorConfig) *Supervisor {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	return &Supervisor{
		id:      id,
		routes:  routes,
		repo:    repo,
		cfg:     cfg,
		state:   domain.StateLoading,
		variant: domain.VariantOriginal,
		monitor: NewRiskMonitor(),
		avoided: make(map[string]struct{}),
	}
}

// ID returns the journey identifier
func (s *Supervisor) ID() string {
	return s.id
}

// Load fetches the route payload for a start/end pair and prepares the
// journey. A later Load supersedes any in-flight fetch; the superseded
// fetch's result is discarded even if it arrives.
func (s *Supervisor) Load(ctx context.Context, start, end domain.GeoPoint) error {
	s.mu.Lock()
	if s.fetchCancel != nil {
		s.fetchCancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.fetchCancel = cancel
	s.state = domain.StateLoading
	s.errMsg = ""
	s.mu.Unlock()

	payload, err := s.routes.FetchRoute(fetchCtx, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()
	if fetchCtx.Err() != nil {
		// Superseded or torn down; the result no longer matters
		return fetchCtx.Err()
	}
	if err != nil {
		s.state = domain.StateFailed
		s.errMsg = failureMessage(err)
		return err
	}
	return s.install(payload)
}

// install binds a fetched payload to a fresh simulator and monitor ledger.
// Caller holds the mutex.
func (s *Supervisor) install(payload *domain.RoutePayload) error {
	model, err := domain.NewRouteModel(payload.OriginalRoute)
	if err != nil {
		s.state = domain.StateFailed
		s.errMsg = failureMessage(err)
		return err
	}
	sim, err := NewSimulator(model, s.cfg.SpeedKmh, s.cfg.TimeScale)
	if err != nil {
		s.state = domain.StateFailed
		s.errMsg = failureMessage(err)
		return err
	}

	s.payload = payload
	s.sim = sim
	s.monitor.Reset()
	s.avoided = make(map[string]struct{})
	s.lastUpdate = nil
	s.alert = nil
	s.variant = domain.VariantOriginal
	s.state = domain.StateReady
	return nil
}

// Start begins traveling. Valid only from the ready state.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateReady {
		return fmt.Errorf("supervisor: cannot start from state %q", s.state)
	}
	s.state = domain.StateTraveling
	s.sim.Start()
	s.saveEvent(domain.EventStarted, s.sim.Position(), "", "", "")

	loopCtx, cancel := context.WithCancel(context.Background())
	s.loopCancel = cancel
	go s.run(loopCtx)
	return nil
}

// run drives the frame clock. All simulation progress happens in step; this
// goroutine only schedules it.
func (s *Supervisor) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.step(now)
		case <-ctx.Done():
			return
		}
	}
}

// step advances the simulator one tick and feeds the monitor. Exposed to
// package tests so time can be driven deterministically.
func (s *Supervisor) step(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sim == nil {
		return
	}
	update, ok := s.sim.Tick(now)
	if !ok {
		return
	}
	s.lastUpdate = &update

	if update.Finished {
		s.state = domain.StateCompleted
		s.saveEvent(domain.EventCompleted, update.Position, "", "", "")
		if s.loopCancel != nil {
			s.loopCancel()
		}
		return
	}

	if s.state != domain.StateTraveling {
		return
	}
	if alert := s.monitor.Observe(update.Position, s.payload.DangerPoints); alert != nil {
		s.sim.Pause()
		s.alert = alert
		s.state = domain.StateAlerted
		delete(s.avoided, alert.Zone.ID)
		s.saveEvent(domain.EventAlerted, update.Position, alert.Zone.ID, alert.Zone.Name, alert.ImpactSummary)
	}
}

// Pause suspends the journey without losing progress
func (s *Supervisor) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateTraveling {
		return fmt.Errorf("supervisor: cannot pause from state %q", s.state)
	}
	s.sim.Pause()
	return nil
}

// Resume continues a paused journey
func (s *Supervisor) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateTraveling {
		return fmt.Errorf("supervisor: cannot resume from state %q", s.state)
	}
	s.sim.Resume()
	return nil
}

// Decide applies the operator's response to the active alert. Ignore
// discards the alert and resumes on the current route. Reroute swaps to the
// safe polyline, keeping the vehicle position as the new route's start; when
// no safe polyline exists the journey stays on the original and
// ErrNoSafeRoute reports the demotion exactly once.
func (s *Supervisor) Decide(decision domain.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateAlerted {
		return fmt.Errorf("supervisor: no active alert in state %q", s.state)
	}

	switch decision {
	case domain.DecisionIgnore:
		pos := s.sim.Position()
		s.saveEvent(domain.EventIgnored, pos, s.alert.Zone.ID, s.alert.Zone.Name, "")
		s.alert = nil
		s.state = domain.StateTraveling
		s.sim.Resume()
		return nil

	case domain.DecisionReroute:
		s.state = domain.StateRerouting
		if err := s.reroute(); err != nil {
			// No alternative: demote the alert and keep traveling the
			// original route
			pos := s.sim.Position()
			s.saveEvent(domain.EventIgnored, pos, s.alert.Zone.ID, s.alert.Zone.Name, "no alternative available")
			s.alert = nil
			s.state = domain.StateTraveling
			s.sim.Resume()
			return err
		}
		pos := s.sim.Position()
		s.saveEvent(domain.EventRerouted, pos, s.alert.Zone.ID, s.alert.Zone.Name, "")
		s.alert = nil
		s.state = domain.StateTraveling
		s.sim.Resume()
		return nil

	default:
		return fmt.Errorf("supervisor: unknown decision %q", decision)
	}
}

// reroute swaps the simulator onto the safe polyline. The current simulated
// position becomes the new first point so the marker never jumps. The
// monitor ledger survives: the zone that fired stays fired. Caller holds the
// mutex.
func (s *Supervisor) reroute() error {
	if len(s.payload.SafeRoute) < 2 {
		return fmt.Errorf("supervisor: %w", domain.ErrNoSafeRoute)
	}

	pos := s.sim.Position()
	safe := s.payload.SafeRoute
	points := make([]domain.GeoPoint, 0, len(safe)+1)
	if domain.DistanceMeters(pos, safe[0]) >= reroutePrependMeters {
		points = append(points, pos)
	}
	points = append(points, safe...)

	model, err := domain.NewRouteModel(points)
	if err != nil {
		return fmt.Errorf("supervisor: safe route rejected: %w", err)
	}
	if err := s.sim.ReplaceRoute(model); err != nil {
		return err
	}
	s.variant = domain.VariantSafe
	// The old route's last update no longer describes anything; the snapshot
	// rebuilds from the new model until the next tick lands
	s.lastUpdate = nil

	// The detour skips every zone that has not fired yet
	for _, zone := range s.payload.DangerPoints {
		if !s.monitor.Triggered(zone.ID) {
			s.avoided[zone.ID] = struct{}{}
		}
	}
	return nil
}

// Stop ends the journey. Safe to call in any state, including after
// completion, where it is a no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchCancel != nil {
		s.fetchCancel()
	}
	if s.loopCancel != nil {
		s.loopCancel()
	}
	if s.state == domain.StateCompleted || s.state == domain.StateStopped {
		return
	}
	if s.sim != nil {
		s.sim.Stop()
		s.saveEvent(domain.EventStopped, s.sim.Position(), "", "", "")
	}
	s.state = domain.StateStopped
}

// Snapshot returns the current view-model. This is the only surface
// presentation code should consume.
func (s *Supervisor) Snapshot() domain.SupervisorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SupervisorSnapshot{
		State:         s.state,
		ActiveVariant: s.variant,
		Error:         s.errMsg,
		Alert:         s.alert,
	}

	if s.payload != nil {
		snap.Zones = make([]domain.ZoneView, 0, len(s.payload.DangerPoints))
		for _, zone := range s.payload.DangerPoints {
			snap.Zones = append(snap.Zones, domain.ZoneView{
				RiskZone: zone,
				Status:   s.zoneStatus(zone.ID),
			})
		}
	}

	if s.sim == nil {
		return snap
	}

	pos := s.sim.Position()
	snap.Position = &pos
	route := s.sim.Route()

	if s.lastUpdate != nil {
		snap.BearingDeg = s.lastUpdate.BearingDeg
		snap.ETAMinutes = s.lastUpdate.ETAMinutes
		snap.DistanceRemainingKm = s.lastUpdate.DistanceRemainingKm
		snap.TraveledPolyline = appendPoint(route.SliceTraveled(s.lastUpdate.SegmentIndex), pos)
		if s.lastUpdate.Finished {
			snap.RemainingPolyline = nil
		} else {
			snap.RemainingPolyline = prependPoint(pos, route.SliceRemaining(s.lastUpdate.SegmentIndex))
		}
		return snap
	}

	// Not yet ticked: everything lies ahead
	snap.BearingDeg = domain.BearingDegrees(route.Points()[0], route.Points()[1])
	snap.ETAMinutes = etaMinutesFor(route.TotalMeters(), s.sim.SpeedKmh())
	snap.DistanceRemainingKm = utils.RoundTo(route.TotalMeters()/1000, 1)
	snap.TraveledPolyline = []domain.GeoPoint{pos}
	snap.RemainingPolyline = route.Points()
	return snap
}

// zoneStatus derives the per-zone display status. Caller holds the mutex.
func (s *Supervisor) zoneStatus(zoneID string) domain.ZoneStatus {
	if s.monitor.Triggered(zoneID) {
		return domain.ZoneTriggered
	}
	if _, ok := s.avoided[zoneID]; ok {
		return domain.ZoneAvoided
	}
	return domain.ZonePending
}

// saveEvent persists a journey event off the tick path. Caller holds the
// mutex; the write happens in the background so a slow store never stalls
// the frame clock.
func (s *Supervisor) saveEvent(eventType string, pos domain.GeoPoint, zoneID, zoneName, detail string) {
	if s.repo == nil {
		return
	}
	event := domain.JourneyEvent{
		JourneyID: s.id,
		Type:      eventType,
		ZoneID:    zoneID,
		ZoneName:  zoneName,
		Lat:       pos.Lat,
		Lon:       pos.Lon,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		if err := s.repo.SaveEvent(context.Background(), event); err != nil {
			log.Printf("supervisor [%s]: failed to save %s event: %v", s.id, eventType, err)
		}
	}()
}

// WaitBackground blocks until pending event writes complete. Call during
// graceful shutdown to avoid dropped writes.
func (s *Supervisor) WaitBackground() {
	s.wgBg.Wait()
}

// failureMessage maps an error to the user-visible snapshot message
func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "session expired, sign in again"
	case errors.Is(err, domain.ErrInvalidRoute), errors.Is(err, domain.ErrInvalidGeometry):
		return err.Error()
	case errors.Is(err, domain.ErrFetchFailed):
		return err.Error()
	default:
		return "could not load route"
	}
}

func appendPoint(points []domain.GeoPoint, p domain.GeoPoint) []domain.GeoPoint {
	out := make([]domain.GeoPoint, 0, len(points)+1)
	out = append(out, points...)
	if len(out) == 0 || out[len(out)-1] != p {
		out = append(out, p)
	}
	return out
}

func prependPoint(p domain.GeoPoint, points []domain.GeoPoint) []domain.GeoPoint {
	out := make([]domain.GeoPoint, 0, len(points)+1)
	if len(points) == 0 || points[0] != p {
		out = append(out, p)
	}
	out = append(out, points...)
	return out
}

func etaMinutesFor(remainingM, speedKmh float64) int {
	if speedKmh <= 0 {
		return 0
	}
	return int(math.Ceil(remainingM / (speedKmh / 3.6) / 60))
}
