package domain

import "errors"

// Error kinds recognized by the simulation core. Failures surface at the
// supervisor boundary; the simulator and monitor never fail mid-tick.
var (
	// ErrInvalidGeometry marks a non-finite or out-of-range coordinate
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidRoute marks a polyline with fewer than two distinct points
	// or zero total length
	ErrInvalidRoute = errors.New("invalid route")

	// ErrFetchFailed marks a transport error or non-2xx route fetch
	ErrFetchFailed = errors.New("route fetch failed")

	// ErrUnauthorized marks a 401 from the route backend; the auth token
	// is cleared when this is returned
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoSafeRoute is returned when a reroute is requested but the
	// payload carried no alternative polyline
	ErrNoSafeRoute = errors.New("no alternative route available")

	// ErrJourneyNotFound marks an unknown journey id
	ErrJourneyNotFound = errors.New("journey not found")
)
