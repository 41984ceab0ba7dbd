package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/internal/pkg/usercontext"
)

// HandleGetUsage reports the caller's quota state for the current month
func HandleGetUsage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	decision, err := swapTracker().Check(userCtx.UserID, models.UsageTypeFaceSwap)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load usage")
	}
	return c.JSON(decision)
}

// HandleGetUsageStats returns the per-month usage series of one year
func HandleGetUsageStats(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	year := c.QueryInt("year", time.Now().Year())
	if year < 2020 || year > time.Now().Year()+1 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_year", "year out of range")
	}

	stats, err := swapTracker().YearStats(userCtx.UserID, models.UsageTypeFaceSwap, year)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load usage stats")
	}
	return c.JSON(stats)
}
