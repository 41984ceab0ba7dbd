package entitlements

import "strings"

type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanCreator    Plan = "CREATOR"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// ordered ranks, compared numerically (never by key iteration order)
var planRanks = map[Plan]int{
	PlanFree:       0,
	PlanCreator:    1,
	PlanPro:        2,
	PlanEnterprise: 3,
}

var monthlyLimits = map[Plan]int{
	PlanFree:       3,
	PlanCreator:    50,
	PlanPro:        250,
	PlanEnterprise: 2000,
}

// prices are NTD per month, matching the gateway's TotalAmount unit
var monthlyPricesTWD = map[Plan]int{
	PlanFree:       0,
	PlanCreator:    890,
	PlanPro:        2090,
	PlanEnterprise: 9090,
}

var displayNames = map[Plan]string{
	PlanFree:       "Free",
	PlanCreator:    "Creator",
	PlanPro:        "Pro",
	PlanEnterprise: "Enterprise",
}

// Normalize maps arbitrary input to a known plan, defaulting to FREE.
func Normalize(plan string) Plan {
	switch Plan(strings.ToUpper(strings.TrimSpace(plan))) {
	case PlanCreator:
		return PlanCreator
	case PlanPro:
		return PlanPro
	case PlanEnterprise:
		return PlanEnterprise
	default:
		return PlanFree
	}
}

// IsKnown reports whether the input names one of the four plans exactly.
func IsKnown(plan string) bool {
	_, ok := planRanks[Plan(strings.ToUpper(strings.TrimSpace(plan)))]
	return ok
}

// Rank returns the ordinal position of a plan. Higher means more entitled.
func Rank(plan Plan) int {
	return planRanks[Normalize(string(plan))]
}

// MonthlyLimit returns the number of swap calls included per calendar month.
func MonthlyLimit(plan Plan) int {
	return monthlyLimits[Normalize(string(plan))]
}

// PriceTWD returns the monthly price in New Taiwan Dollars.
func PriceTWD(plan Plan) int {
	return monthlyPricesTWD[Normalize(string(plan))]
}

// DisplayName returns the human-facing plan name.
func DisplayName(plan Plan) string {
	return displayNames[Normalize(string(plan))]
}

// IsPaid reports whether the plan requires a subscription payment.
func IsPaid(plan Plan) bool {
	return Rank(plan) > Rank(PlanFree)
}

// CanUpgradeTo enforces monotonic plan changes: the target must strictly
// outrank the current plan.
func CanUpgradeTo(current, target Plan) bool {
	return Rank(target) > Rank(current)
}

// All returns the plans in ascending rank order.
func All() []Plan {
	return []Plan{PlanFree, PlanCreator, PlanPro, PlanEnterprise}
}
