package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to the controllers so browser and API flows share behavior
	"github.com/contentswap/contentswap/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the health check endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

func (s *APIServer) PostRegister(c *fiber.Ctx) error {
	return controllers.HandleRegister(c)
}

func (s *APIServer) PostLogin(c *fiber.Ctx) error {
	return controllers.HandleLogin(c)
}

func (s *APIServer) PostLogout(c *fiber.Ctx) error {
	return controllers.HandleLogout(c)
}

func (s *APIServer) GetMe(c *fiber.Ctx) error {
	return controllers.HandleMe(c)
}

func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	return controllers.HandleListPlans(c)
}

func (s *APIServer) GetStats(c *fiber.Ctx) error {
	return controllers.HandleGetServiceStats(c)
}

func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	return controllers.HandleGetSubscription(c)
}

func (s *APIServer) PostSubscriptionCancel(c *fiber.Ctx) error {
	return controllers.HandleCancelSubscription(c)
}

func (s *APIServer) PostSwap(c *fiber.Ctx) error {
	return controllers.HandleCreateSwap(c)
}

// GetSwap returns one swap run. The wrapper in RegisterHandlers already
// extracted the id from the route.
func (s *APIServer) GetSwap(c *fiber.Ctx, id string) error {
	return controllers.HandleGetSwap(c)
}

func (s *APIServer) GetUsage(c *fiber.Ctx) error {
	return controllers.HandleGetUsage(c)
}

func (s *APIServer) GetUsageStats(c *fiber.Ctx) error {
	return controllers.HandleGetUsageStats(c)
}

func (s *APIServer) PostPaymentCheckout(c *fiber.Ctx) error {
	return controllers.HandleCreateCheckout(c)
}

func (s *APIServer) PostPaymentCallback(c *fiber.Ctx) error {
	return controllers.HandlePaymentCallback(c)
}

func (s *APIServer) PostPaymentReturn(c *fiber.Ctx) error {
	return controllers.HandlePaymentReturn(c)
}
