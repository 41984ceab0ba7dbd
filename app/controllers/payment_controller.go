package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/app/repository"
	"github.com/contentswap/contentswap/internal/pkg/constants"
	"github.com/contentswap/contentswap/internal/pkg/ecpay"
	"github.com/contentswap/contentswap/internal/pkg/entitlements"
	"github.com/contentswap/contentswap/internal/pkg/mail"
	"github.com/contentswap/contentswap/internal/pkg/usercontext"
)

const paymentProvider = "ecpay"

type checkoutRequest struct {
	Plan string `json:"plan" form:"plan"`
}

// prepareCheckout validates an upgrade request and returns the signed
// gateway form. The subscription is parked as INCOMPLETE until the
// payment callback confirms it.
func prepareCheckout(userID uint, targetPlan string) (*ecpay.CheckoutForm, string, error) {
	if !entitlements.IsKnown(targetPlan) {
		return nil, "invalid_plan", fmt.Errorf("unknown plan %q", targetPlan)
	}
	target := entitlements.Normalize(targetPlan)
	if !entitlements.IsPaid(target) {
		return nil, "invalid_plan", errors.New("the free plan needs no checkout")
	}

	repos := repository.GetGlobalRepositories()
	sub, err := repos.Subscription.GetByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "internal_error", err
	}
	current := entitlements.PlanFree
	if err == nil {
		current = entitlements.Normalize(sub.Plan)
	}
	if !entitlements.CanUpgradeTo(current, target) {
		return nil, "not_an_upgrade", fmt.Errorf("cannot change plan from %s to %s", current, target)
	}

	tradeNo := ecpay.GenerateTradeNo()
	if err := repos.Subscription.UpsertPendingUpgrade(userID, string(target), tradeNo); err != nil {
		return nil, "internal_error", err
	}

	form := ecpay.NewClientFromEnv().CreateCheckout(ecpay.CheckoutParams{
		TradeNo:     tradeNo,
		TotalAmount: entitlements.PriceTWD(target),
		TradeDesc:   "ContentSwap subscription",
		ItemName:    fmt.Sprintf("ContentSwap %s plan (1 month)", entitlements.DisplayName(target)),
		Plan:        string(target),
		UserID:      userID,
	})
	return form, "", nil
}

// HandleCreateCheckout returns the signed gateway form as JSON so the
// frontend can auto-post it.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "could not parse request body")
	}

	form, code, err := prepareCheckout(userCtx.UserID, req.Plan)
	if err != nil {
		status := fiber.StatusBadRequest
		if code == "internal_error" {
			log.Printf("[Payment] checkout failed for user %d: %v", userCtx.UserID, err)
			return jsonError(c, fiber.StatusInternalServerError, code, "could not create checkout")
		}
		return jsonError(c, status, code, err.Error())
	}

	return c.JSON(fiber.Map{
		"action":   form.Action,
		"fields":   form.Fields,
		"trade_no": form.Fields["MerchantTradeNo"],
	})
}

// HandleCheckoutPage renders an auto-submitting form that forwards the
// browser to the gateway's hosted checkout.
func HandleCheckoutPage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	form, code, err := prepareCheckout(userCtx.UserID, c.Query("plan"))
	if err != nil {
		if code == "internal_error" {
			log.Printf("[Payment] checkout failed for user %d: %v", userCtx.UserID, err)
		}
		fm := fiber.Map{"type": "error", "message": "Checkout could not be started: " + err.Error()}
		return flash.WithError(c, fm).Redirect(constants.PricingRoute, fiber.StatusSeeOther)
	}

	return c.Render("checkout", fiber.Map{
		"Action": form.Action,
		"Fields": form.Fields,
	})
}

// HandlePaymentCallback receives the gateway's server-to-server result.
// The gateway retries until it reads the literal "1|OK", so every path
// that must not be retried answers exactly that.
func HandlePaymentCallback(c *fiber.Ctx) error {
	form := map[string]string{}
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		form[string(key)] = string(value)
	})

	client := ecpay.NewClientFromEnv()
	result := client.ParseResult(form)

	eventID := result.TradeNo
	if eventID == "" {
		eventID = result.MerchantTradeNo + ":" + result.RtnCode
	}
	payload, _ := json.Marshal(form)

	created, event, err := repository.GetGlobalRepositories().WebhookEvent.CreateIfNotExists(&models.PaymentWebhookEvent{
		Provider:        paymentProvider,
		ProviderEventID: eventID,
		TradeNo:         result.MerchantTradeNo,
		RtnCode:         result.RtnCode,
		PayloadJSON:     string(payload),
		SignatureValid:  result.SignatureValid,
	})
	if err != nil {
		log.Printf("[Payment] could not record webhook event %s: %v", eventID, err)
		return replyCallback(c, false)
	}
	if !created {
		// Retry of an event we already answered
		if event.ProcessedAt != nil && event.ProcessingError == "" {
			return replyCallback(c, true)
		}
		// Recorded but never finished; fall through and process again
	}

	if !result.SignatureValid {
		log.Printf("[Payment] rejected callback with bad signature, trade %s", result.MerchantTradeNo)
		_ = repository.GetGlobalRepositories().WebhookEvent.MarkProcessed(event.ID, "invalid signature")
		return replyCallback(c, false)
	}

	if err := applyPaymentResult(result); err != nil {
		log.Printf("[Payment] could not apply result for trade %s: %v", result.MerchantTradeNo, err)
		_ = repository.GetGlobalRepositories().WebhookEvent.MarkProcessed(event.ID, err.Error())
		return replyCallback(c, false)
	}

	_ = repository.GetGlobalRepositories().WebhookEvent.MarkProcessed(event.ID, "")
	return replyCallback(c, true)
}

// applyPaymentResult moves the pending subscription into its post-payment
// state. Failures leave it INCOMPLETE so a later checkout can retry.
func applyPaymentResult(result *ecpay.CallbackResult) error {
	repos := repository.GetGlobalRepositories()

	sub, err := repos.Subscription.GetByTradeNo(result.MerchantTradeNo)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no subscription pending trade %s", result.MerchantTradeNo)
	}
	if err != nil {
		return err
	}

	if !result.Succeeded() {
		// Keep the INCOMPLETE state written at checkout time
		log.Printf("[Payment] trade %s failed at gateway: %s %s", result.MerchantTradeNo, result.RtnCode, result.RtnMsg)
		return nil
	}

	plan := entitlements.Normalize(result.Plan)
	if string(plan) != sub.Plan {
		// Custom field disagreeing with the pending row is suspicious,
		// trust what we wrote at checkout time
		log.Printf("[Payment] trade %s plan mismatch: callback %s, pending %s", result.MerchantTradeNo, result.Plan, sub.Plan)
	}

	now := time.Now()
	sub.Status = models.SubscriptionStatusActive
	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = now.Add(models.BillingPeriod)
	sub.CancelAtPeriodEnd = false
	if err := repos.Subscription.Save(sub); err != nil {
		return err
	}

	go sendPaymentReceipt(sub.UserID, sub.Plan, result)
	return nil
}

func sendPaymentReceipt(userID uint, plan string, result *ecpay.CallbackResult) {
	user, err := repository.GetGlobalRepositories().User.GetByID(userID)
	if err != nil {
		log.Printf("[Payment] receipt mail skipped, user %d not found: %v", userID, err)
		return
	}
	amount, _ := strconv.Atoi(result.TradeAmt)
	if err := mail.SendPaymentReceipt(user.Email, user.Name, entitlements.DisplayName(entitlements.Normalize(plan)), amount, result.MerchantTradeNo); err != nil {
		log.Printf("[Payment] receipt mail to %s failed: %v", user.Email, err)
	}
}

// replyCallback answers in the gateway's expected plain-text protocol.
func replyCallback(c *fiber.Ctx, ok bool) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	if ok {
		return c.SendString("1|OK")
	}
	return c.SendString("0|ERROR")
}

// HandlePaymentReturn receives the browser after the hosted checkout and
// shows the outcome. The cached plan is dropped so the next request sees
// the plan the callback activated.
func HandlePaymentReturn(c *fiber.Ctx) error {
	form := map[string]string{}
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		form[string(key)] = string(value)
	})
	result := ecpay.NewClientFromEnv().ParseResult(form)

	clearPlanCache(c)

	succeeded := result.SignatureValid && result.Succeeded()
	return c.Render("payment-result", fiber.Map{
		"Succeeded": succeeded,
		"TradeNo":   result.MerchantTradeNo,
		"Message":   result.RtnMsg,
	})
}
