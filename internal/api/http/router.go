package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mov-ti/helpdesk-service/internal/api/http/handlers"
	"github.com/mov-ti/helpdesk-service/internal/auth"
	"github.com/mov-ti/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	// export registers before :id so the literal path wins
	tickets.Get("/export", cfg.Tickets.ExportTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)

	agentOnly := auth.RequireRole(domain.RoleAgent)
	tickets.Post("/:id/status", agentOnly, cfg.Tickets.SetStatus)
	tickets.Post("/:id/items/:index/resolve", agentOnly, cfg.Tickets.ResolveItem)
}
