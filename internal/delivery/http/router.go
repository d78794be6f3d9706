package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/smartconvoy/backend/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, journeys *service.JourneyManager, repo service.JourneyRepository) {
	handler := NewHandler(journeys, repo)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Journey lifecycle
		api.Post("/journeys", handler.CreateJourney)
		api.Get("/journeys/:id", handler.GetJourney)
		api.Post("/journeys/:id/start", handler.StartJourney)
		api.Post("/journeys/:id/pause", handler.PauseJourney)
		api.Post("/journeys/:id/resume", handler.ResumeJourney)
		api.Post("/journeys/:id/decision", handler.DecideJourney)
		api.Delete("/journeys/:id", handler.StopJourney)

		// Operations log
		api.Get("/journeys/:id/events", handler.GetJourneyEvents)
		api.Get("/events", handler.GetRecentEvents)
	}
}
