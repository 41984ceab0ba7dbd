package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/internal/pkg/session"
	"github.com/contentswap/contentswap/internal/pkg/usercontext"
)

// jsonError writes the uniform API error shape.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// createUserSession writes the login state into the user's session.
func createUserSession(c *fiber.Ctx, user *models.User, plan string) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyUserEmail, user.Email)
	if err := sess.Save(); err != nil {
		return err
	}

	return session.SetSessionValue(c, "user_plan", plan)
}

// clearPlanCache drops the cached plan so the next request reloads it from
// the subscription row.
func clearPlanCache(c *fiber.Ctx) {
	_ = session.SetSessionValue(c, "user_plan", "")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
