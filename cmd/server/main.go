package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/smartconvoy/backend/internal/delivery/http"
	"github.com/smartconvoy/backend/internal/domain"
	"github.com/smartconvoy/backend/internal/repository/postgres"
	"github.com/smartconvoy/backend/internal/repository/sqlite"
	"github.com/smartconvoy/backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()

	// Journey event store: Postgres when configured, local SQLite file
	// otherwise, in-memory mock as a last resort
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, cleanup := openRepository(ctx, cfg)
	defer cleanup()

	// Dependency Injection: Services
	tokens := service.NewEnvTokenProvider("ROUTE_API_TOKEN")
	routeSvc := service.NewRouteService(cfg.RouterURL, tokens)
	journeys := service.NewJourneyManager(routeSvc, repo)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "SmartConvoy API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, journeys, repo)

	// Graceful shutdown
	go func() {
		port := cfg.Port
		if port == "" {
			port = "8080"
		}
		log.Printf("Server starting on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	journeys.StopAll()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}

type Config struct {
	DatabaseURL string
	SQLitePath  string
	RouterURL   string
	Port        string
	Env         string
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),
		RouterURL:   getEnv("ROUTER_URL", "http://localhost:8000"),
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("GO_ENV", "development"),
	}
}

// openRepository picks the journey event store for this run
func openRepository(ctx context.Context, cfg *Config) (domain.JourneyRepository, func()) {
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			repo := postgres.NewPostgresRepository(pool)
			if err := repo.EnsureSchema(ctx); err != nil {
				log.Printf("Warning: could not prepare Postgres schema: %v", err)
			} else {
				log.Println("Connected to PostgreSQL")
				return repo, pool.Close
			}
			pool.Close()
		} else {
			log.Printf("Warning: could not connect to database: %v", err)
		}
	}

	if cfg.SQLitePath != "" {
		repo, err := sqlite.NewSQLiteRepository(cfg.SQLitePath)
		if err == nil {
			if err := repo.EnsureSchema(ctx); err != nil {
				log.Printf("Warning: could not prepare SQLite schema: %v", err)
				repo.Close()
			} else {
				log.Printf("Using SQLite journey log at %s", cfg.SQLitePath)
				return repo, func() { repo.Close() }
			}
		} else {
			log.Printf("Warning: could not open SQLite database: %v", err)
		}
	}

	log.Println("Running with in-memory journey log only")
	return postgres.NewMockRepository(), func() {}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
