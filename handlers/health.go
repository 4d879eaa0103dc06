package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

const apiVersion = "1.0.0"

func SetupHealthRoutes(app *fiber.App, api fiber.Router, clock clockwork.Clock) {
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "OK",
			"message":   "Simon Says Game API is running",
			"timestamp": clock.Now().UTC().Format(time.RFC3339Nano),
			"version":   apiVersion,
		})
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Simon Says Game API Server",
			"status":  "online",
			"endpoints": fiber.Map{
				"health":      "/api/health",
				"auth":        "/api/auth",
				"user":        "/api/user",
				"game":        "/api/game",
				"leaderboard": "/api/leaderboard",
				"friends":     "/api/friends",
			},
		})
	})
}
