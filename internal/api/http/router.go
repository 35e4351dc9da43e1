package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cargodesk/cargodesk/internal/api/http/handlers"
	"github.com/cargodesk/cargodesk/internal/auth"
	"github.com/cargodesk/cargodesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Departments    *handlers.DepartmentsHandler
	Audit          *handlers.AuditHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Tier checks at the router are a first
// gate only; services re-evaluate authorization on every operation.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/quotes", cfg.Tickets.SubmitQuote)
	tickets.Post("/:id/assign", cfg.Tickets.AssignTicket)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("", auth.RequireTier(domain.TierSuperAdmin), cfg.Users.ListUsers)
	users.Post("", auth.RequireTier(domain.TierSuperAdmin), cfg.Users.CreateUser)
	users.Patch("/:id", auth.RequireTier(domain.TierSuperAdmin), cfg.Users.UpdateUser)
	users.Post("/:id/deactivate", auth.RequireTier(domain.TierSuperAdmin), cfg.Users.DeactivateUser)
	users.Post("/:id/reactivate", auth.RequireTier(domain.TierSuperAdmin), cfg.Users.ReactivateUser)

	departments := app.Group("/departments", cfg.AuthMiddleware.Handle)
	departments.Get("", cfg.Departments.List)
	departments.Post("", auth.RequireTier(domain.TierSuperAdmin), cfg.Departments.Create)
	departments.Patch("/:id", auth.RequireTier(domain.TierSuperAdmin), cfg.Departments.Update)

	app.Get("/audit", cfg.AuthMiddleware.Handle, auth.RequireTier(domain.TierManager), cfg.Audit.List)
	app.Get("/reports/dashboard", cfg.AuthMiddleware.Handle, auth.RequireTier(domain.TierManager), cfg.Reports.Dashboard)
}
