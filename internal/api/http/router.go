package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hackdesk/internal/api/http/handlers"
	"github.com/spec-kit/hackdesk/internal/auth"
	"github.com/spec-kit/hackdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/token", cfg.Auth.IssueToken)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.SubmitTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/claim", auth.RequireKind(domain.ParticipantHelper), cfg.Tickets.ClaimTicket)
	tickets.Post("/:id/helpers", auth.RequireKind(domain.ParticipantHelper), cfg.Tickets.JoinTicket)
	tickets.Post("/:id/leave", cfg.Tickets.LeaveTicket)
	tickets.Post("/:id/cancel", auth.RequireKind(domain.ParticipantRequester), cfg.Tickets.CancelTicket)
	tickets.Post("/:id/close", auth.RequireKind(domain.ParticipantStaff), cfg.Tickets.CloseTicket)
	tickets.Patch("/:id/gc", auth.RequireKind(domain.ParticipantStaff), cfg.Tickets.SetGCExclusion)
	tickets.Get("/:id/history", auth.RequireKind(domain.ParticipantStaff), cfg.Tickets.GetHistory)
}
