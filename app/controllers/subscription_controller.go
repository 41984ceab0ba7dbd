package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/app/repository"
	"github.com/contentswap/contentswap/internal/pkg/entitlements"
	"github.com/contentswap/contentswap/internal/pkg/usercontext"
)

// HandleListPlans returns the public plan catalog
func HandleListPlans(c *fiber.Ctx) error {
	plans := make([]fiber.Map, 0, 4)
	for _, p := range entitlements.All() {
		plans = append(plans, fiber.Map{
			"plan":          string(p),
			"name":          entitlements.DisplayName(p),
			"monthly_limit": entitlements.MonthlyLimit(p),
			"price_twd":     entitlements.PriceTWD(p),
			"paid":          entitlements.IsPaid(p),
		})
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// HandleGetSubscription returns the caller's subscription state
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	sub, err := repository.GetGlobalRepositories().Subscription.GetByUserID(userCtx.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "no_subscription", "no subscription on record")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load subscription")
	}

	plan := entitlements.Normalize(sub.Plan)
	return c.JSON(fiber.Map{
		"plan":                 string(plan),
		"plan_name":            entitlements.DisplayName(plan),
		"status":               sub.Status,
		"monthly_limit":        entitlements.MonthlyLimit(plan),
		"price_twd":            entitlements.PriceTWD(plan),
		"current_period_start": sub.CurrentPeriodStart.Format(time.RFC3339),
		"current_period_end":   sub.CurrentPeriodEnd.Format(time.RFC3339),
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
	})
}

// HandleCancelSubscription flags a paid subscription to lapse at the end
// of the paid period. Access continues until then.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	sub, err := repos.Subscription.GetByUserID(userCtx.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "no_subscription", "no subscription on record")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load subscription")
	}

	plan := entitlements.Normalize(sub.Plan)
	if !entitlements.IsPaid(plan) {
		return jsonError(c, fiber.StatusBadRequest, "not_cancelable", "the free plan cannot be canceled")
	}
	if sub.Status != models.SubscriptionStatusActive {
		return jsonError(c, fiber.StatusBadRequest, "not_cancelable", "only active subscriptions can be canceled")
	}

	if !sub.CancelAtPeriodEnd {
		sub.CancelAtPeriodEnd = true
		if err := repos.Subscription.Save(sub); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not update subscription")
		}
	}

	return c.JSON(fiber.Map{
		"plan":                 string(plan),
		"status":               sub.Status,
		"cancel_at_period_end": true,
		"current_period_end":   sub.CurrentPeriodEnd.Format(time.RFC3339),
	})
}
