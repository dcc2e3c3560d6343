package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/refund-claim-service/internal/api/http/handlers"
	"github.com/spec-kit/refund-claim-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Cases          *handlers.CasesHandler
	Templates      *handlers.TemplatesHandler
	Chat           *handlers.ChatHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Users.ChangePassword)

	cases := app.Group("/cases", cfg.AuthMiddleware.Handle)
	cases.Post("/", cfg.Cases.CreateCase)
	cases.Get("/", cfg.Cases.ListCases)
	cases.Get("/:id", cfg.Cases.GetCase)
	cases.Delete("/:id", cfg.Cases.DeleteCase)
	cases.Post("/:id/evidence/files", cfg.Cases.AddFiles)
	cases.Post("/:id/evidence/links", cfg.Cases.AddLink)
	cases.Delete("/:id/evidence/:itemId", cfg.Cases.RemoveEvidence)
	cases.Put("/:id/notes", cfg.Cases.UpdateNotes)
	cases.Post("/:id/notes/template", cfg.Cases.ApplyNoteTemplate)
	cases.Put("/:id/language", cfg.Cases.SetLanguage)
	cases.Patch("/:id/facts", cfg.Cases.UpdateFacts)
	cases.Post("/:id/process", cfg.Cases.StartProcessing)
	cases.Post("/:id/analysis/refresh", cfg.Cases.RefreshAnalysis)
	cases.Post("/:id/letter", cfg.Cases.GenerateLetter)

	templates := app.Group("/templates", cfg.AuthMiddleware.Handle)
	templates.Post("/", cfg.Templates.SaveTemplate)
	templates.Get("/", cfg.Templates.ListTemplates)
	templates.Delete("/:id", cfg.Templates.DeleteTemplate)

	chat := app.Group("/chat", cfg.AuthMiddleware.Handle)
	chat.Get("/", cfg.Chat.History)
	chat.Post("/", cfg.Chat.Send)
	chat.Delete("/", cfg.Chat.Reset)
}
