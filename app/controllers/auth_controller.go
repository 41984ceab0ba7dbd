package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/app/repository"
	"github.com/contentswap/contentswap/internal/pkg/database"
	"github.com/contentswap/contentswap/internal/pkg/entitlements"
	"github.com/contentswap/contentswap/internal/pkg/env"
	"github.com/contentswap/contentswap/internal/pkg/hcaptcha"
	"github.com/contentswap/contentswap/internal/pkg/mail"
	"github.com/contentswap/contentswap/internal/pkg/session"
	"github.com/contentswap/contentswap/internal/pkg/usercontext"
)

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a user account plus its initial FREE subscription.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	// Captcha is enforced only when configured, so local setups and tests
	// work without a secret.
	if env.GetEnv("HCAPTCHA_SECRET", "") != "" {
		if valid, err := hcaptcha.Verify(req.CaptchaToken); err != nil || !valid {
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "Captcha validation failed")
		}
	}

	repos := repository.GetGlobalRepositories()

	if _, err := repos.User.GetByEmail(req.Email); err == nil {
		return jsonError(c, fiber.StatusBadRequest, "email_taken", "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check email")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	db := database.GetDB()
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(models.NewFreeSubscription(user.ID)).Error
	}); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
	}

	go func() {
		if err := mail.SendWelcome(user.Email, user.Name); err != nil {
			log.Errorf("Failed to send welcome mail to %s: %v", user.Email, err)
		}
	}()

	if err := createUserSession(c, user, string(entitlements.PlanFree)); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create session")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"plan":  string(entitlements.PlanFree),
	})
}

// HandleLogin authenticates with email and password.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByEmail(strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		// same answer for unknown email and wrong password
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	}

	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "This account is disabled")
	}

	plan := string(entitlements.PlanFree)
	if sub, err := repos.Subscription.GetByUserID(user.ID); err == nil {
		plan = string(entitlements.Normalize(sub.Plan))
	}

	if err := createUserSession(c, user, plan); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create session")
	}

	now := time.Now()
	user.LastLoginAt = &now
	_ = repos.User.Update(user)

	return c.JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"plan":  plan,
	})
}

// HandleLogout destroys the session.
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	c.Locals(usercontext.KeyFromProtected, false)
	return c.JSON(fiber.Map{"message": "logged out"})
}

// HandleMe returns the authenticated user's account and subscription state.
func HandleMe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	repos := repository.GetGlobalRepositories()
	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	response := fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"avatar_url":    user.AvatarURL,
		"created_at":    user.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(user.LastLoginAt),
	}

	if sub, err := repos.Subscription.GetByUserID(user.ID); err == nil {
		plan := entitlements.Normalize(sub.Plan)
		response["subscription"] = fiber.Map{
			"plan":                 string(plan),
			"plan_name":            entitlements.DisplayName(plan),
			"status":               sub.Status,
			"current_period_start": sub.CurrentPeriodStart.UTC().Format(time.RFC3339),
			"current_period_end":   sub.CurrentPeriodEnd.UTC().Format(time.RFC3339),
			"cancel_at_period_end": sub.CancelAtPeriodEnd,
			"monthly_limit":        entitlements.MonthlyLimit(plan),
		}
	}

	return c.JSON(response)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
