package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smartconvoy/backend/internal/domain"
	"github.com/smartconvoy/backend/internal/repository/postgres"
	"github.com/smartconvoy/backend/internal/service"
)

const testRouteBody = `{
	"original_route": [[28.6139, 77.2090], [28.6600, 77.1500], [28.7041, 77.1025]],
	"safe_route": null,
	"danger_points": [
		{"id": "z1", "name": "Ridge Pass", "lat": 28.7041, "lon": 77.1025, "radius_km": 1, "risk_level": "high", "distance_km": 0.2}
	],
	"distance_m": 14442.3,
	"eta_seconds": 866.5
}`

func newTestApp(t *testing.T, backend http.HandlerFunc) (*fiber.App, *postgres.MockRepository) {
	t.Helper()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	routes := service.NewRouteService(server.URL, service.NewStaticTokenProvider(""))
	repo := postgres.NewMockRepository()
	journeys := service.NewJourneyManager(routes, repo)
	t.Cleanup(journeys.StopAll)

	app := fiber.New()
	SetupRoutes(app, journeys, repo)
	return app, repo
}

func routeBackend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(testRouteBody))
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t, routeBackend)

	resp := doRequest(t, app, fiber.MethodGet, "/health", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" || body["store"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestCreateJourney(t *testing.T) {
	app, _ := newTestApp(t, routeBackend)

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys",
		`{"start": {"lat": 28.6139, "lon": 77.2090}, "end": {"lat": 28.7041, "lon": 77.1025}}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	id, _ := body["journey_id"].(string)
	if id == "" {
		t.Fatal("missing journey_id")
	}
	data, _ := body["data"].(map[string]any)
	if data["state"] != string(domain.StateReady) {
		t.Errorf("state = %v, want ready", data["state"])
	}
	zones, _ := data["zones"].([]any)
	if len(zones) != 1 {
		t.Fatalf("zones = %v", data["zones"])
	}
	zone, _ := zones[0].(map[string]any)
	if zone["status"] != string(domain.ZonePending) {
		t.Errorf("zone status = %v, want pending", zone["status"])
	}

	// The snapshot is also served on GET
	resp = doRequest(t, app, fiber.MethodGet, "/api/v1/journeys/"+id, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	body = decodeBody(t, resp)
	data, _ = body["data"].(map[string]any)
	if data["state"] != string(domain.StateReady) {
		t.Errorf("GET state = %v", data["state"])
	}
}

func TestCreateJourneyRequiresEndpoints(t *testing.T) {
	app, _ := newTestApp(t, routeBackend)

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys", `{}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateJourneyBackendFailure(t *testing.T) {
	app, _ := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error": "no routes found"}`))
	})

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys",
		`{"start": {"lat": 28.6139, "lon": 77.2090}, "end": {"lat": 28.7041, "lon": 77.1025}}`)
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestCreateJourneyUnauthorized(t *testing.T) {
	app, _ := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys",
		`{"start": {"lat": 28.6139, "lon": 77.2090}, "end": {"lat": 28.7041, "lon": 77.1025}}`)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestGetJourneyNotFound(t *testing.T) {
	app, _ := newTestApp(t, routeBackend)

	resp := doRequest(t, app, fiber.MethodGet, "/api/v1/journeys/nope", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestJourneyLifecycleTransitions(t *testing.T) {
	app, _ := newTestApp(t, routeBackend)

	body := decodeBody(t, doRequest(t, app, fiber.MethodPost, "/api/v1/journeys",
		`{"start": {"lat": 28.6139, "lon": 77.2090}, "end": {"lat": 28.7041, "lon": 77.1025}, "time_scale": 1}`))
	id, _ := body["journey_id"].(string)

	// Pause before start is a state conflict
	if resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys/"+id+"/pause", ""); resp.StatusCode != fiber.StatusConflict {
		t.Errorf("pause before start: status = %d, want 409", resp.StatusCode)
	}
	// So is a decision with no active alert
	if resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys/"+id+"/decision", `{"action": "ignore"}`); resp.StatusCode != fiber.StatusConflict {
		t.Errorf("decision without alert: status = %d, want 409", resp.StatusCode)
	}

	resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys/"+id+"/start", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("start: status = %d", resp.StatusCode)
	}
	data, _ := decodeBody(t, resp)["data"].(map[string]any)
	if data["state"] != string(domain.StateTraveling) {
		t.Errorf("state after start = %v", data["state"])
	}

	// Starting twice is a conflict
	if resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys/"+id+"/start", ""); resp.StatusCode != fiber.StatusConflict {
		t.Errorf("second start: status = %d, want 409", resp.StatusCode)
	}

	if resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys/"+id+"/pause", ""); resp.StatusCode != fiber.StatusOK {
		t.Errorf("pause: status = %d", resp.StatusCode)
	}
	if resp := doRequest(t, app, fiber.MethodPost, "/api/v1/journeys/"+id+"/resume", ""); resp.StatusCode != fiber.StatusOK {
		t.Errorf("resume: status = %d", resp.StatusCode)
	}

	// Delete stops and removes the journey
	if resp := doRequest(t, app, fiber.MethodDelete, "/api/v1/journeys/"+id, ""); resp.StatusCode != fiber.StatusOK {
		t.Errorf("delete: status = %d", resp.StatusCode)
	}
	if resp := doRequest(t, app, fiber.MethodGet, "/api/v1/journeys/"+id, ""); resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestJourneyEventsEndpoints(t *testing.T) {
	app, repo := newTestApp(t, routeBackend)

	now := time.Now().UTC()
	seed := []domain.JourneyEvent{
		{JourneyID: "j1", Type: domain.EventStarted, Lat: 28.61, Lon: 77.21, Timestamp: now.Add(-10 * time.Minute)},
		{JourneyID: "j1", Type: domain.EventAlerted, ZoneID: "z1", ZoneName: "Ridge Pass", Lat: 28.65, Lon: 77.16, Timestamp: now.Add(-5 * time.Minute)},
		{JourneyID: "j2", Type: domain.EventStarted, Lat: 28.70, Lon: 77.10, Timestamp: now.Add(-48 * time.Hour)},
	}
	for _, e := range seed {
		if err := repo.SaveEvent(context.Background(), e); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}

	resp := doRequest(t, app, fiber.MethodGet, "/api/v1/journeys/j1/events", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["count"] != float64(2) {
		t.Errorf("j1 event count = %v, want 2", body["count"])
	}

	// Recent window excludes the two-day-old event
	resp = doRequest(t, app, fiber.MethodGet, "/api/v1/events?hours=24", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["count"] != float64(2) {
		t.Errorf("recent event count = %v, want 2", body["count"])
	}
}
