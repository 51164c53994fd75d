package router

import (
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HttpRouter struct {
	// SpecPath is the OpenAPI document served under /docs/api/v1. Empty
	// disables the docs UI.
	SpecPath string
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if h.SpecPath != "" && fileExists(h.SpecPath) {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: h.SpecPath,
			Path:     "v1",
			Title:    "InstaGrowth API",
		}))
	}
}

func NewHttpRouter(specPath string) *HttpRouter {
	return &HttpRouter{SpecPath: specPath}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
