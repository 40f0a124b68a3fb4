package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Chat           *handlers.ChatHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	// StorageRoot, when set, is served read-only under /storage.
	StorageRoot string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	if cfg.StorageRoot != "" {
		app.Static("/storage", cfg.StorageRoot, fiber.Static{Browse: false})
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)

	me := app.Group("/me", cfg.AuthMiddleware.Handle)
	me.Get("", cfg.Auth.Profile)
	me.Patch("", cfg.Auth.UpdateProfile)

	chat := app.Group("/chat", cfg.AuthMiddleware.Handle)
	chat.Get("", cfg.Chat.Open)
	chat.Get("/counterparts", cfg.Chat.Counterparts)
	chat.Get("/threads/:counterpartId", cfg.Chat.Thread)
	chat.Post("/messages", cfg.Chat.PostMessage)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/statuses", cfg.Tickets.ListStatuses)
	tickets.Get("/users", auth.RequireRoles(domain.RoleSupport), cfg.Tickets.SearchOwners)
	tickets.Post("", auth.RejectAdmin(), cfg.Tickets.CreateTicket)
	tickets.Patch("/:id/deadline", auth.RequireRoles(domain.RoleSupport), cfg.Tickets.UpdateDeadline)
	tickets.Patch("/:id/status", auth.RequireRoles(domain.RoleSupport), cfg.Tickets.UpdateStatus)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRoles(domain.RoleAdmin))
	admin.Get("/accounts", cfg.Admin.ListAccounts)
	admin.Patch("/accounts/:id/role", cfg.Admin.UpdateRole)
}
