package controllers

import (
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/internal/pkg/entitlements"
)

func TestRegisterCreatesFreeActiveSubscription(t *testing.T) {
	mock := setupControllerTest(t)
	setupSessionStore(t)

	app := fiber.New()
	app.Post("/api/v1/register", HandleRegister)

	// The account and its subscription are created in one transaction;
	// a signup must never exist without a subscription row.
	mock.ExpectQuery("SELECT \\* FROM `users`").
		WithArgs("trinity@example.com", 1).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO `subscriptions`").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	resp := postJSON(t, app, "/api/v1/register",
		`{"name":"Trinity","email":"trinity@example.com","password":"s3cretpass"}`)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, float64(42), payload["id"])
	assert.Equal(t, string(entitlements.PlanFree), payload["plan"])

	waitExpectationsMet(t, mock)
}

// The row written at signup entitles the user immediately: FREE, ACTIVE
// and three swaps for the month, with no payment involved.
func TestNewFreeSubscriptionEntitlesImmediately(t *testing.T) {
	sub := models.NewFreeSubscription(42)

	assert.Equal(t, string(entitlements.PlanFree), sub.Plan)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.IsActive())
	assert.Equal(t, 3, entitlements.MonthlyLimit(entitlements.PlanFree))
	assert.True(t, sub.CurrentPeriodEnd.After(sub.CurrentPeriodStart))
}
