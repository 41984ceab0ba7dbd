package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/app/repository"
	"github.com/contentswap/contentswap/internal/pkg/constants"
	"github.com/contentswap/contentswap/internal/pkg/database"
	"github.com/contentswap/contentswap/internal/pkg/entitlements"
	"github.com/contentswap/contentswap/internal/pkg/env"
)

// HandleOAuthCallback completes the provider flow and logs the user in
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Login via provider failed, please try again."}
		return flash.WithError(c, fm).Redirect(constants.PublicRoute, fiber.StatusSeeOther)
	}

	db := database.GetDB()

	// Try to find existing provider account
	var pa models.ProviderAccount
	res := db.Where("provider = ? AND provider_user_id = ?", u.Provider, u.UserID).First(&pa)

	var appUser models.User
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		// Optional email match if provided
		if u.Email != "" {
			_ = db.Where("email = ?", u.Email).First(&appUser).Error
		}
		if appUser.ID == 0 {
			// Password is a random placeholder; OAuth users never log in with it
			placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
			hash, _ := models.HashPassword(placeholder)
			email := u.Email
			if email == "" {
				// Unique, non-empty email to satisfy the unique index
				email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
			}
			appUser = models.User{
				Name:      firstNonEmpty(u.Name, u.NickName, u.Email, "User"),
				Email:     email,
				Password:  hash,
				AvatarURL: firstNonEmpty(u.AvatarURL, models.GravatarURL(email)),
				Status:    models.STATUS_ACTIVE,
			}
			if err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&appUser).Error; err != nil {
					return err
				}
				return tx.Create(models.NewFreeSubscription(appUser.ID)).Error
			}); err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("create user failed: %v", err))
			}
		}
		var exp *time.Time
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			exp = &t
		}
		pa = models.ProviderAccount{
			UserID:         appUser.ID,
			Provider:       u.Provider,
			ProviderUserID: u.UserID,
			AccessToken:    u.AccessToken,
			RefreshToken:   u.RefreshToken,
			ExpiresAt:      exp,
		}
		if err := db.Create(&pa).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("link provider failed: %v", err))
		}
	} else if res.Error == nil {
		// Update tokens
		pa.AccessToken = u.AccessToken
		pa.RefreshToken = u.RefreshToken
		if !u.ExpiresAt.IsZero() {
			t := u.ExpiresAt
			pa.ExpiresAt = &t
		} else {
			pa.ExpiresAt = nil
		}
		if err := db.Save(&pa).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("update tokens failed: %v", err))
		}
		if err := db.First(&appUser, pa.UserID).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("linked user not found")
		}
	} else {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("db error: %v", res.Error))
	}

	plan := string(entitlements.PlanFree)
	if sub, err := repository.GetGlobalRepositories().Subscription.GetByUserID(appUser.ID); err == nil {
		plan = string(entitlements.Normalize(sub.Plan))
	}

	if err := createUserSession(c, &appUser, plan); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session save failed")
	}

	now := time.Now()
	appUser.LastLoginAt = &now
	_ = repository.GetGlobalRepositories().User.Update(&appUser)

	// Hand the browser back to the frontend after login
	target := env.GetEnv("FRONTEND_URL", constants.PublicRoute)
	return c.Redirect(target, fiber.StatusSeeOther)
}
