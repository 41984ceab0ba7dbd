package constants

// Static route constants
const (
	PublicRoute  = "/"
	PricingRoute = "/pricing"
	// CheckoutRoute renders the auto-post form towards the gateway
	CheckoutRoute = "/checkout"
)
