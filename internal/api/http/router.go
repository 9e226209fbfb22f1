package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/farmer-dashboard/internal/api/http/handlers"
	"github.com/spec-kit/farmer-dashboard/internal/auth"
	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Profile *handlers.ProfileHandler
	Gate    *auth.Gate
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.Gate.Handle, cfg.Auth.Me)

	profile := api.Group("/profile", cfg.Gate.Handle, auth.RequireRole(domain.RoleFarmer))
	profile.Get("/region", cfg.Profile.GetRegion)
	profile.Put("/region", cfg.Profile.PutRegion)
}
