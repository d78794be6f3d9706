package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/smartconvoy/backend/internal/domain"
	"github.com/smartconvoy/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	journeys *service.JourneyManager
	repo     service.JourneyRepository
}

// NewHandler creates a new handler
func NewHandler(journeys *service.JourneyManager, repo service.JourneyRepository) *Handler {
	return &Handler{
		journeys: journeys,
		repo:     repo,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	store := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		store = "unavailable"
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "smartconvoy-backend",
		"version": "1.0.0",
		"store":   store,
	})
}

// CreateJourneyRequest is the launch request body. Either a convoy id or an
// explicit start/end pair must be supplied.
type CreateJourneyRequest struct {
	ConvoyID  string           `json:"convoy_id"`
	Start     *domain.GeoPoint `json:"start"`
	End       *domain.GeoPoint `json:"end"`
	SpeedKmh  float64          `json:"speed_kmh"`
	TimeScale float64          `json:"time_scale"`
}

// CreateJourney launches a new journey and returns its first snapshot
func (h *Handler) CreateJourney(c *fiber.Ctx) error {
	var req CreateJourneyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	cfg := service.SupervisorConfig{
		SpeedKmh:  req.SpeedKmh,
		TimeScale: req.TimeScale,
	}

	var (
		sup *service.Supervisor
		err error
	)
	switch {
	case req.ConvoyID != "":
		sup, err = h.journeys.LaunchForConvoy(c.Context(), req.ConvoyID, cfg)
	case req.Start != nil && req.End != nil:
		sup, err = h.journeys.Launch(c.Context(), *req.Start, *req.End, cfg)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "convoy_id or start/end required")
	}
	if err != nil {
		return journeyError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"journey_id": sup.ID(),
		"data":       sup.Snapshot(),
	})
}

// GetJourney returns the current view-model snapshot
func (h *Handler) GetJourney(c *fiber.Ctx) error {
	sup, err := h.journeys.Get(c.Params("id"))
	if err != nil {
		return journeyError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    sup.Snapshot(),
	})
}

// StartJourney begins traveling
func (h *Handler) StartJourney(c *fiber.Ctx) error {
	sup, err := h.journeys.Get(c.Params("id"))
	if err != nil {
		return journeyError(err)
	}
	if err := sup.Start(); err != nil {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    sup.Snapshot(),
	})
}

// PauseJourney suspends travel without losing progress
func (h *Handler) PauseJourney(c *fiber.Ctx) error {
	sup, err := h.journeys.Get(c.Params("id"))
	if err != nil {
		return journeyError(err)
	}
	if err := sup.Pause(); err != nil {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return c.JSON(fiber.Map{"success": true})
}

// ResumeJourney continues a paused journey
func (h *Handler) ResumeJourney(c *fiber.Ctx) error {
	sup, err := h.journeys.Get(c.Params("id"))
	if err != nil {
		return journeyError(err)
	}
	if err := sup.Resume(); err != nil {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return c.JSON(fiber.Map{"success": true})
}

// DecideRequest is the operator response to an active alert
type DecideRequest struct {
	Action domain.Decision `json:"action"`
}

// DecideJourney applies an ignore or reroute decision
func (h *Handler) DecideJourney(c *fiber.Ctx) error {
	sup, err := h.journeys.Get(c.Params("id"))
	if err != nil {
		return journeyError(err)
	}

	var req DecideRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := sup.Decide(req.Action); err != nil {
		// Reroute without an alternative keeps traveling; surface the
		// demotion with the snapshot rather than as a failure
		if errors.Is(err, domain.ErrNoSafeRoute) {
			return c.JSON(fiber.Map{
				"success": true,
				"message": "no alternative available",
				"data":    sup.Snapshot(),
			})
		}
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    sup.Snapshot(),
	})
}

// StopJourney stops a journey and removes it from the registry
func (h *Handler) StopJourney(c *fiber.Ctx) error {
	if err := h.journeys.Remove(c.Params("id")); err != nil {
		return journeyError(err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetJourneyEvents returns the persisted event log for one journey
func (h *Handler) GetJourneyEvents(c *fiber.Ctx) error {
	events, err := h.repo.GetJourneyEvents(c.Context(), c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch journey events")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    events,
		"count":   len(events),
	})
}

// GetRecentEvents returns events across journeys within a time range
func (h *Handler) GetRecentEvents(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 24)
	if hours < 1 || hours > 720 { // max 30 days
		hours = 24
	}

	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	events, err := h.repo.GetRecentEvents(c.Context(), from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch events")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    events,
		"count":   len(events),
	})
}

// journeyError maps core error kinds to HTTP statuses
func journeyError(err error) error {
	switch {
	case errors.Is(err, domain.ErrJourneyNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Journey not found")
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, "Route backend rejected credentials")
	case errors.Is(err, domain.ErrInvalidGeometry), errors.Is(err, domain.ErrInvalidRoute):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrFetchFailed):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
