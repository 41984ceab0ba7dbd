package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/contentswap/contentswap/internal/pkg/statistics"
)

// HandleGetServiceStats returns the public service counters
func HandleGetServiceStats(c *fiber.Ctx) error {
	return c.JSON(statistics.GetServiceStats())
}
