package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smartconvoy/backend/internal/domain"
)

// RouteService fetches route and convoy resources from the route backend.
// It is the only component that performs route I/O; the supervisor owns
// cancellation and supersede-latest semantics through the request context.
type RouteService struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
}

// NewRouteService creates a new route service client
func NewRouteService(baseURL string, tokens TokenProvider) *RouteService {
	return &RouteService{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		tokens: tokens,
	}
}

// routeResponse mirrors the route backend payload. Coordinates arrive as
// [lat, lon] pairs; danger point ids may be strings or numbers.
type routeResponse struct {
	OriginalRoute [][]float64           `json:"original_route"`
	SafeRoute     [][]float64           `json:"safe_route"`
	DangerPoints  []dangerPointResponse `json:"danger_points"`
	DistanceM     float64               `json:"distance_m"`
	ETASeconds    float64               `json:"eta_seconds"`
}

type dangerPointResponse struct {
	ID        any     `json:"id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	RadiusKm  float64 `json:"radius_km"`
	RiskLevel string  `json:"risk_level"`
	// DistanceKm is the backend's advisory route-to-zone distance
	DistanceKm float64 `json:"distance_km"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// FetchRoute fetches the route resource for a start/end pair. A 401 clears
// the token and returns ErrUnauthorized; other non-2xx responses return
// ErrFetchFailed with the backend's message when one is present.
func (s *RouteService) FetchRoute(ctx context.Context, start, end domain.GeoPoint) (*domain.RoutePayload, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if err := end.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("start_lat", strconv.FormatFloat(start.Lat, 'f', -1, 64))
	q.Set("start_lon", strconv.FormatFloat(start.Lon, 'f', -1, 64))
	q.Set("end_lat", strconv.FormatFloat(end.Lat, 'f', -1, 64))
	q.Set("end_lon", strconv.FormatFloat(end.Lon, 'f', -1, 64))

	endpoint := fmt.Sprintf("%s/dynamic_route_json?%s", s.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("route_service: failed to create request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route_service: %w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		s.tokens.Clear()
		return nil, fmt.Errorf("route_service: %w", domain.ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("route_service: %w: %s", domain.ErrFetchFailed, readErrorMessage(resp))
	}

	var wire routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("route_service: failed to decode response: %w", err)
	}

	payload := &domain.RoutePayload{
		OriginalRoute: pairsToPoints(wire.OriginalRoute),
		SafeRoute:     pairsToPoints(wire.SafeRoute),
		DistanceM:     wire.DistanceM,
		ETASeconds:    wire.ETASeconds,
	}
	for _, dp := range wire.DangerPoints {
		payload.DangerPoints = append(payload.DangerPoints, domain.RiskZone{
			ID:         zoneID(dp.ID),
			Name:       dp.Name,
			Center:     domain.GeoPoint{Lat: dp.Lat, Lon: dp.Lon},
			RadiusKm:   dp.RadiusKm,
			RiskLevel:  dp.RiskLevel,
			DistanceKm: dp.DistanceKm,
		})
	}

	if len(payload.OriginalRoute) < 2 {
		return nil, fmt.Errorf("route_service: %w: original route has %d points", domain.ErrInvalidRoute, len(payload.OriginalRoute))
	}

	return payload, nil
}

// FetchConvoy fetches the convoy resource used to launch a route fetch
func (s *RouteService) FetchConvoy(ctx context.Context, convoyID string) (*domain.Convoy, error) {
	endpoint := fmt.Sprintf("%s/convoys/%s", s.baseURL, url.PathEscape(convoyID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("route_service: failed to create request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route_service: %w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		s.tokens.Clear()
		return nil, fmt.Errorf("route_service: %w", domain.ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("route_service: %w: %s", domain.ErrFetchFailed, readErrorMessage(resp))
	}

	var convoy domain.Convoy
	if err := json.NewDecoder(resp.Body).Decode(&convoy); err != nil {
		return nil, fmt.Errorf("route_service: failed to decode convoy: %w", err)
	}
	return &convoy, nil
}

// authorize attaches the bearer token when one is available
func (s *RouteService) authorize(req *http.Request) {
	if token := s.tokens.Get(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// readErrorMessage extracts a user-visible message from an error body,
// falling back to a generic network message
func readErrorMessage(resp *http.Response) string {
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		switch {
		case body.Message != "":
			return body.Message
		case body.Error != "":
			return body.Error
		case body.Detail != "":
			return body.Detail
		}
	}
	return fmt.Sprintf("route backend returned status %d", resp.StatusCode)
}

// pairsToPoints converts [lat, lon] wire pairs to GeoPoints, skipping
// malformed entries
func pairsToPoints(pairs [][]float64) []domain.GeoPoint {
	if len(pairs) == 0 {
		return nil
	}
	points := make([]domain.GeoPoint, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		points = append(points, domain.GeoPoint{Lat: pair[0], Lon: pair[1]})
	}
	return points
}

// zoneID normalizes a string-or-number zone id to a string key
func zoneID(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
