package router

import (
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/contentswap/contentswap/app/controllers"
	"github.com/contentswap/contentswap/internal/pkg/middleware"
	"github.com/contentswap/contentswap/internal/pkg/oauth"
	"github.com/contentswap/contentswap/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// OAuth login flow
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Browser checkout hop: renders the auto-post form towards the gateway
	app.Get("/checkout", middleware.RequireAuth, controllers.HandleCheckoutPage)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
