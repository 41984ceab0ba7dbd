package router

import (
	apiv1 "github.com/contentswap/contentswap/internal/api/v1"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max: 120,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "ContentSwap API, see /api/v1/openapi.yml",
		})
	})

	// Interactive API docs rendered from the same document the server embeds
	app.Use(swagger.New(swagger.Config{
		BasePath: "/api/v1/",
		FilePath: "./internal/api/v1/openapi.yml",
		Path:     "docs",
		Title:    "ContentSwap API",
	}))

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
