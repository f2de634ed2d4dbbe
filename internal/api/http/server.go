package http

import (
	"github.com/gofiber/fiber/v2"
)

// ServerConfig carries everything needed to assemble the HTTP application.
type ServerConfig struct {
	AppName    string
	Middleware MiddlewareConfig
	Routes     RouteConfig
}

// NewServer builds the fiber application with middlewares and routes attached.
func NewServer(cfg ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, cfg.Middleware)
	RegisterRoutes(app, cfg.Routes)
	return app
}
