package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/contentswap/contentswap/internal/pkg/middleware"
)

// Pong is the health check response body
type Pong struct {
	Ping string `json:"ping"`
}

// ErrorResponse is the uniform error body of every endpoint
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ServerInterface lists every operation of the v1 API
type ServerInterface interface {
	// GetPing is the unauthenticated health check
	GetPing(c *fiber.Ctx) error
	// GetOpenAPISpec serves the API description document
	GetOpenAPISpec(c *fiber.Ctx) error

	// PostRegister creates an account with email and password
	PostRegister(c *fiber.Ctx) error
	// PostLogin starts a session
	PostLogin(c *fiber.Ctx) error
	// PostLogout ends the session
	PostLogout(c *fiber.Ctx) error
	// GetMe returns the account and subscription of the caller
	GetMe(c *fiber.Ctx) error

	// GetPlans returns the public plan catalog
	GetPlans(c *fiber.Ctx) error
	// GetStats returns public service counters
	GetStats(c *fiber.Ctx) error
	// GetSubscription returns the caller's subscription
	GetSubscription(c *fiber.Ctx) error
	// PostSubscriptionCancel flags the subscription to lapse at period end
	PostSubscriptionCancel(c *fiber.Ctx) error

	// PostSwap starts a face swap run
	PostSwap(c *fiber.Ctx) error
	// GetSwap returns the state of one run
	GetSwap(c *fiber.Ctx, id string) error

	// GetUsage returns the current month quota state
	GetUsage(c *fiber.Ctx) error
	// GetUsageStats returns the monthly usage series of a year
	GetUsageStats(c *fiber.Ctx) error

	// PostPaymentCheckout returns a signed gateway checkout form
	PostPaymentCheckout(c *fiber.Ctx) error
	// PostPaymentCallback receives the gateway's server notification
	PostPaymentCallback(c *fiber.Ctx) error
	// PostPaymentReturn receives the browser after hosted checkout
	PostPaymentReturn(c *fiber.Ctx) error
}

// RegisterHandlers attaches all v1 operations to the router. Session
// protected operations carry the API auth middleware inline.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	auth := middleware.RequireAPISessionAuth

	router.Get("/ping", si.GetPing)
	router.Get("/openapi.yml", si.GetOpenAPISpec)

	router.Post("/register", si.PostRegister)
	router.Post("/login", si.PostLogin)
	router.Post("/logout", auth, si.PostLogout)
	router.Get("/me", auth, si.GetMe)

	router.Get("/plans", si.GetPlans)
	router.Get("/stats", si.GetStats)
	router.Get("/subscription", auth, si.GetSubscription)
	router.Post("/subscription/cancel", auth, si.PostSubscriptionCancel)

	router.Post("/swap", auth, si.PostSwap)
	router.Get("/swap/:id", auth, func(c *fiber.Ctx) error {
		return si.GetSwap(c, c.Params("id"))
	})

	router.Get("/usage", auth, si.GetUsage)
	router.Get("/usage/stats", auth, si.GetUsageStats)

	router.Post("/payment/checkout", auth, si.PostPaymentCheckout)
	router.Post("/payment/callback", si.PostPaymentCallback)
	router.Post("/payment/return", si.PostPaymentReturn)
}
