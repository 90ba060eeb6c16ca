package server

import (
	"time"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/config"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/controllers"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type HTTPServerDependencies struct {
	Config            *config.Config
	AuthController    *controllers.AuthController
	ReportsController *controllers.ReportsController
}

// NewHTTPServer wires the OAuth and report endpoints onto a fiber app.
func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "hubspot-oauth-bridge",
	})

	router.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	router.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.AllowedOrigins,
	}))
	router.Use(logger.New())

	if deps.AuthController == nil || deps.ReportsController == nil {
		log.Fatal().Msg("Controllers are nil, the server cannot route requests")
	}

	api := router.Group("/api")

	// Health check endpoint (no authentication required)
	api.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "hubspot-oauth-bridge",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": requestid.FromContext(c),
			"checks": fiber.Map{
				"environment": "ok",
				"runtime":     "ok",
			},
		})
	})

	authGroup := api.Group("/auth")
	authGroup.Get("/install", deps.AuthController.Install)
	authGroup.Get("/callback", deps.AuthController.Callback)
	authGroup.Post("/refresh", deps.AuthController.Refresh)
	authGroup.Get("/status", deps.AuthController.Status)

	reports := api.Group("/reports")
	reports.Get("/available", deps.ReportsController.Available)
	reports.Post("/generate-url", deps.ReportsController.GenerateURL)

	return router
}
