package mail

import (
	"fmt"
	"html"

	"github.com/contentswap/contentswap/internal/pkg/env"
)

// SendWelcome greets a freshly registered user.
func SendWelcome(to string, name string) error {
	appName := env.GetEnv("APP_NAME", "ContentSwap")
	subject := fmt.Sprintf("Welcome to %s", appName)
	body := fmt.Sprintf(`<html><body>
<h2>Welcome, %s!</h2>
<p>Your %s account is ready. You start on the free plan with a monthly
allowance of swaps, upgrade any time from the pricing page.</p>
<p>Have fun!</p>
</body></html>`, html.EscapeString(name), html.EscapeString(appName))
	return SendMail(to, subject, body)
}

// SendPaymentReceipt confirms a successful subscription payment.
func SendPaymentReceipt(to string, name string, plan string, amount int, tradeNo string) error {
	appName := env.GetEnv("APP_NAME", "ContentSwap")
	subject := fmt.Sprintf("%s payment confirmation", appName)
	body := fmt.Sprintf(`<html><body>
<h2>Thanks, %s!</h2>
<p>We received your payment of NT$%d for the <strong>%s</strong> plan.</p>
<p>Order number: %s</p>
<p>Your subscription is now active. You can review it in your account settings.</p>
</body></html>`, html.EscapeString(name), amount, html.EscapeString(plan), html.EscapeString(tradeNo))
	return SendMail(to, subject, body)
}
