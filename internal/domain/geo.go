package domain

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used for haversine distances
const EarthRadiusMeters = 6371000.0

// GeoPoint represents a geographic coordinate in decimal degrees
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the point has finite, in-range coordinates
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: non-finite coordinate (%v, %v)", ErrInvalidGeometry, p.Lat, p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidGeometry, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidGeometry, p.Lon)
	}
	return nil
}

// DistanceMeters calculates the great-circle distance between two points in meters
func DistanceMeters(a, b GeoPoint) float64 {
	if a == b {
		return 0
	}

	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	deltaPhi := (b.Lat - a.Lat) * math.Pi / 180
	deltaLambda := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	// Floating point can push h a hair above 1 for antipodal points
	if h > 1 {
		h = 1
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// BearingDegrees calculates the initial bearing from a to b in degrees [0, 360).
// Returns 0 when both points are identical.
func BearingDegrees(a, b GeoPoint) float64 {
	if a == b {
		return 0
	}

	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	deltaLambda := (b.Lon - a.Lon) * math.Pi / 180

	x := math.Sin(deltaLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	bearing := math.Atan2(x, y) * 180 / math.Pi
	bearing = math.Mod(bearing+360, 360)
	// Mod can return 360.0 when the input rounds to -0
	if bearing >= 360 {
		bearing = 0
	}
	return bearing
}

// Interpolate returns the point at fraction t between a and b.
// Planar interpolation per axis; segments are short enough that the
// difference from the great-circle position is below display resolution.
func Interpolate(a, b GeoPoint, t float64) GeoPoint {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return GeoPoint{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lon: a.Lon + (b.Lon-a.Lon)*t,
	}
}

// PolylineLengthMeters sums the haversine distances over consecutive point pairs
func PolylineLengthMeters(points []GeoPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += DistanceMeters(points[i-1], points[i])
	}
	return total
}
