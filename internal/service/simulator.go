package service

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/smartconvoy/backend/internal/domain"
	"github.com/smartconvoy/backend/pkg/utils"
)

const (
	// DefaultSpeedKmh is the physical ground speed used for ETA when the
	// operator does not override it
	DefaultSpeedKmh = 60.0

	// DefaultTimeScale compresses real transit time into observable demo
	// time. ETA reporting is never scaled; only tick advance is.
	DefaultTimeScale = 100.0

	// DefaultFrameInterval is one display frame
	DefaultFrameInterval = 16 * time.Millisecond
)

// Simulator drives a position along a route model at a configured ground
// speed. It is cooperative: all progress happens inside Tick, which the
// owner calls once per frame. Updates are emitted strictly in tick order,
// at most one per tick, and never between Pause and Resume.
type Simulator struct {
	mu sync.Mutex

	route    *domain.RouteModel
	segment  int
	progress float64 // fraction of the current segment, [0,1)
	position domain.GeoPoint
	bearing  float64

	speedKmh  float64
	timeScale float64

	started  bool
	paused   bool
	finished bool
	stopped  bool

	lastTick time.Time
	hasLast  bool
}

// NewSimulator creates a simulator over a route model. Speed and time scale
// fall back to defaults when non-positive.
func NewSimulator(route *domain.RouteModel, speedKmh, timeScale float64) (*Simulator, error) {
	if route == nil || route.Segments() == 0 {
		return nil, fmt.Errorf("simulator: %w", domain.ErrInvalidRoute)
	}
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	if timeScale <= 0 {
		timeScale = DefaultTimeScale
	}
	return &Simulator{
		route:     route,
		position:  route.First(),
		bearing:   domain.BearingDegrees(route.Points()[0], route.Points()[1]),
		speedKmh:  speedKmh,
		timeScale: timeScale,
	}, nil
}

// Start begins ticking. Idempotent.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

// Pause suspends progress without losing it
func (s *Simulator) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume continues from the paused position. The last-tick timestamp is
// dropped so wall-clock time spent paused is never covered.
func (s *Simulator) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	s.hasLast = false
}

// Stop ends the simulation; no further updates are emitted
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// ReplaceRoute rebinds the simulator to a new route model, restarting at its
// first point. The caller is responsible for building a model whose first
// point equals the current simulated position when visual continuity matters.
func (s *Simulator) ReplaceRoute(route *domain.RouteModel) error {
	if route == nil || route.Segments() == 0 {
		return fmt.Errorf("simulator: %w", domain.ErrInvalidRoute)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = route
	s.segment = 0
	s.progress = 0
	s.position = route.First()
	s.bearing = domain.BearingDegrees(route.Points()[0], route.Points()[1])
	s.finished = false
	s.hasLast = false
	return nil
}

// Paused reports whether the simulator is paused
func (s *Simulator) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Finished reports whether the route has been fully traveled
func (s *Simulator) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Position returns the current simulated position
func (s *Simulator) Position() domain.GeoPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Route returns the active route model
func (s *Simulator) Route() *domain.RouteModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// SpeedKmh returns the configured physical ground speed
func (s *Simulator) SpeedKmh() float64 {
	return s.speedKmh
}

// Tick advances the simulation to now and returns the published update, if
// any. Paused ticks and the first tick after start or resume only record the
// timestamp so that the following tick sees a real delta.
func (s *Simulator) Tick(now time.Time) (domain.SimulatorUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped || s.finished {
		return domain.SimulatorUpdate{}, false
	}
	if s.paused {
		s.lastTick = now
		return domain.SimulatorUpdate{}, false
	}
	if !s.hasLast {
		s.lastTick = now
		s.hasLast = true
		return domain.SimulatorUpdate{}, false
	}

	dt := now.Sub(s.lastTick)
	s.lastTick = now
	if dt <= 0 {
		return domain.SimulatorUpdate{}, false
	}

	metersPerMs := (s.speedKmh / 3.6) * s.timeScale / 1000
	advance := metersPerMs * float64(dt) / float64(time.Millisecond)

	points := s.route.Points()
	for advance > 0 && !s.finished {
		segLen := s.route.SegmentLength(s.segment)
		remainingInSegment := segLen * (1 - s.progress)
		if advance < remainingInSegment {
			s.progress += advance / segLen
			advance = 0
		} else {
			advance -= remainingInSegment
			if s.segment+1 >= s.route.Segments() {
				s.segment = s.route.Segments() - 1
				s.progress = 1
				s.finished = true
			} else {
				s.segment++
				s.progress = 0
			}
		}
	}

	if s.finished {
		s.position = s.route.Last()
		s.bearing = domain.BearingDegrees(points[s.segment], points[s.segment+1])
		return domain.SimulatorUpdate{
			Position:        s.position,
			SegmentIndex:    s.segment,
			SegmentProgress: 1,
			BearingDeg:      s.bearing,
			Finished:        true,
			At:              now,
		}, true
	}

	s.position = domain.Interpolate(points[s.segment], points[s.segment+1], s.progress)
	s.bearing = domain.BearingDegrees(points[s.segment], points[s.segment+1])

	remainingM := s.route.RemainingFrom(s.segment, s.progress)
	// ETA uses the real, unscaled speed: it represents transit time, not
	// demo time
	etaMinutes := int(math.Ceil(remainingM / (s.speedKmh / 3.6) / 60))

	return domain.SimulatorUpdate{
		Position:            s.position,
		SegmentIndex:        s.segment,
		SegmentProgress:     s.progress,
		BearingDeg:          s.bearing,
		DistanceRemainingKm: utils.RoundTo(remainingM/1000, 1),
		ETAMinutes:          etaMinutes,
		Finished:            false,
		At:                  now,
	}, true
}
