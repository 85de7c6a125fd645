package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/feedthegoat/content-service/internal/api/http/handlers"
	"github.com/feedthegoat/content-service/internal/auth"
	"github.com/feedthegoat/content-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Podcasts *handlers.PodcastsHandler
	Articles *handlers.ArticlesHandler
	Gate     *auth.Gate
}

// RegisterRoutes wires HTTP routes. Required roles are declared here, at
// registration time, so the full authorization surface is visible in one
// place.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh-token", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)

	podcasts := app.Group("/podcasts")
	podcasts.Get("/", cfg.Podcasts.List)
	podcasts.Get("/:id", cfg.Podcasts.Get)
	podcastAdmin := podcasts.Group("", cfg.Gate.Authenticate, cfg.Gate.Require(domain.RoleAdmin, domain.RoleEditor))
	podcastAdmin.Post("/", cfg.Podcasts.Create)
	podcastAdmin.Put("/:id", cfg.Podcasts.Update)
	podcastAdmin.Delete("/:id", cfg.Podcasts.Delete)

	articles := app.Group("/articles")
	articles.Get("/", cfg.Articles.List)
	articles.Get("/:id", cfg.Articles.Get)
	articleAdmin := articles.Group("", cfg.Gate.Authenticate, cfg.Gate.Require(domain.RoleAdmin, domain.RoleEditor))
	articleAdmin.Post("/", cfg.Articles.Create)
	articleAdmin.Put("/:id", cfg.Articles.Update)
	articleAdmin.Delete("/:id", cfg.Articles.Delete)
}
