package domain

import (
	"fmt"
	"sort"
)

// coalesceMeters is the separation below which consecutive polyline points
// are treated as duplicates and merged
const coalesceMeters = 1.0

// maxPolylinePoints bounds the accepted polyline size
const maxPolylinePoints = 5000

// RouteModel is an immutable arc-length view over a polyline. Segment and
// cumulative lengths are computed once at construction; position queries are
// a binary search over the cumulative lengths.
type RouteModel struct {
	points     []GeoPoint
	segmentLen []float64 // meters, len = len(points)-1
	cumulative []float64 // cumulative[i] = arc length at start of segment i
	totalLen   float64
}

// NewRouteModel builds a RouteModel from a raw polyline. Consecutive points
// closer than one meter are coalesced first; the result must still contain
// at least two points and a positive total length.
func NewRouteModel(points []GeoPoint) (*RouteModel, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidRoute, len(points))
	}
	if len(points) > maxPolylinePoints {
		return nil, fmt.Errorf("%w: %d points exceeds cap of %d", ErrInvalidRoute, len(points), maxPolylinePoints)
	}

	coalesced := make([]GeoPoint, 0, len(points))
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if len(coalesced) > 0 && DistanceMeters(coalesced[len(coalesced)-1], p) < coalesceMeters {
			continue
		}
		coalesced = append(coalesced, p)
	}
	if len(coalesced) < 2 {
		return nil, fmt.Errorf("%w: fewer than 2 distinct points after coalescing", ErrInvalidRoute)
	}

	segments := len(coalesced) - 1
	m := &RouteModel{
		points:     coalesced,
		segmentLen: make([]float64, segments),
		cumulative: make([]float64, segments),
	}

	var total float64
	for i := 0; i < segments; i++ {
		m.cumulative[i] = total
		m.segmentLen[i] = DistanceMeters(coalesced[i], coalesced[i+1])
		total += m.segmentLen[i]
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: zero total length", ErrInvalidRoute)
	}
	m.totalLen = total

	return m, nil
}

// Points returns the coalesced polyline
func (m *RouteModel) Points() []GeoPoint {
	return m.points
}

// Segments returns the number of segments
func (m *RouteModel) Segments() int {
	return len(m.segmentLen)
}

// SegmentLength returns the length of segment i in meters
func (m *RouteModel) SegmentLength(i int) float64 {
	return m.segmentLen[i]
}

// CumulativeLength returns the arc length at the start of segment i
func (m *RouteModel) CumulativeLength(i int) float64 {
	return m.cumulative[i]
}

// TotalMeters returns the total route length in meters
func (m *RouteModel) TotalMeters() float64 {
	return m.totalLen
}

// First returns the first point of the polyline
func (m *RouteModel) First() GeoPoint {
	return m.points[0]
}

// Last returns the final point of the polyline
func (m *RouteModel) Last() GeoPoint {
	return m.points[len(m.points)-1]
}

// Locate resolves an arc length to a segment index, in-segment progress,
// position, and bearing. Arc lengths are clamped at both ends of the route.
func (m *RouteModel) Locate(arcMeters float64) (segment int, progress float64, position GeoPoint, bearing float64) {
	if arcMeters <= 0 {
		seg := 0
		return seg, 0, m.points[0], BearingDegrees(m.points[0], m.points[1])
	}
	if arcMeters >= m.totalLen {
		seg := len(m.segmentLen) - 1
		return seg, 1, m.Last(), BearingDegrees(m.points[seg], m.points[seg+1])
	}

	// First segment whose start lies beyond arcMeters, minus one
	seg := sort.Search(len(m.cumulative), func(i int) bool {
		return m.cumulative[i] > arcMeters
	}) - 1

	within := arcMeters - m.cumulative[seg]
	progress = within / m.segmentLen[seg]
	position = Interpolate(m.points[seg], m.points[seg+1], progress)
	bearing = BearingDegrees(m.points[seg], m.points[seg+1])
	return seg, progress, position, bearing
}

// SliceTraveled returns the polyline points up to and including the start of
// the segment currently being traveled
func (m *RouteModel) SliceTraveled(segment int) []GeoPoint {
	if segment < 0 {
		segment = 0
	}
	if segment > len(m.segmentLen)-1 {
		segment = len(m.segmentLen) - 1
	}
	return m.points[:segment+1]
}

// SliceRemaining returns the polyline points from the end of the segment
// currently being traveled onward
func (m *RouteModel) SliceRemaining(segment int) []GeoPoint {
	if segment < 0 {
		segment = 0
	}
	if segment > len(m.segmentLen)-1 {
		segment = len(m.segmentLen) - 1
	}
	return m.points[segment+1:]
}

// RemainingFrom returns the arc length left after covering progress of
// segment i, in meters
func (m *RouteModel) RemainingFrom(segment int, progress float64) float64 {
	if segment < 0 || segment >= len(m.segmentLen) {
		return 0
	}
	remaining := m.segmentLen[segment] * (1 - progress)
	for i := segment + 1; i < len(m.segmentLen); i++ {
		remaining += m.segmentLen[i]
	}
	return remaining
}
