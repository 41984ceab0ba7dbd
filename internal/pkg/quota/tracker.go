package quota

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/contentswap/contentswap/app/repository"
	"github.com/contentswap/contentswap/internal/pkg/entitlements"
)

// PlanNone marks a user without any subscription row. Such users are denied
// outright instead of silently treated as FREE.
const PlanNone = "NONE"

// Decision is the verdict of a quota check for one user and feature.
type Decision struct {
	CanUse       bool   `json:"can_use"`
	CurrentUsage int    `json:"current_usage"`
	Limit        int    `json:"limit"`
	Plan         string `json:"plan"`
}

// MonthUsage is one bar of the per-year usage chart.
type MonthUsage struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Stats aggregates a full calendar year of metered usage.
type Stats struct {
	Plan         string       `json:"plan"`
	Limit        int          `json:"limit"`
	CurrentUsage int          `json:"current_usage"`
	TotalUsage   int          `json:"total_usage"`
	MonthlyData  []MonthUsage `json:"monthly_data"`
}

// Tracker meters feature usage against subscription entitlements. All slot
// accounting goes through single-statement repository operations, so two
// concurrent requests racing for the last slot cannot both be admitted.
type Tracker struct {
	subs  repository.SubscriptionRepository
	usage repository.UsageRepository
	now   func() time.Time
}

func NewTracker(subs repository.SubscriptionRepository, usage repository.UsageRepository) *Tracker {
	return &Tracker{
		subs:  subs,
		usage: usage,
		now:   time.Now,
	}
}

// entitlement resolves a user's plan and limit. A FREE subscription counts
// regardless of status; paid plans entitle only while ACTIVE.
func (t *Tracker) entitlement(userID uint) (entitlements.Plan, int, bool, error) {
	sub, err := t.subs.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, false, nil
		}
		return "", 0, false, fmt.Errorf("load subscription: %w", err)
	}

	plan := entitlements.Normalize(sub.Plan)
	if entitlements.IsPaid(plan) && !sub.IsActive() {
		return plan, entitlements.MonthlyLimit(plan), false, nil
	}
	return plan, entitlements.MonthlyLimit(plan), true, nil
}

// Check reports whether the user may run one more metered call this month.
// It never mutates the counter.
func (t *Tracker) Check(userID uint, usageType string) (*Decision, error) {
	plan, limit, entitled, err := t.entitlement(userID)
	if err != nil {
		return nil, err
	}
	if plan == "" {
		return &Decision{CanUse: false, Plan: PlanNone}, nil
	}

	now := t.now()
	count, err := t.usage.GetCount(userID, usageType, int(now.Month()), now.Year())
	if err != nil {
		return nil, fmt.Errorf("load usage count: %w", err)
	}

	return &Decision{
		CanUse:       entitled && count < limit,
		CurrentUsage: count,
		Limit:        limit,
		Plan:         string(plan),
	}, nil
}

// Reserve atomically claims one slot of the current month. When admitted the
// returned decision reflects the state after the claim. Callers that fail
// downstream must call Release to give the slot back.
func (t *Tracker) Reserve(userID uint, usageType string) (*Decision, error) {
	plan, limit, entitled, err := t.entitlement(userID)
	if err != nil {
		return nil, err
	}
	if plan == "" {
		return &Decision{CanUse: false, Plan: PlanNone}, nil
	}

	now := t.now()
	month, year := int(now.Month()), now.Year()

	if !entitled {
		count, err := t.usage.GetCount(userID, usageType, month, year)
		if err != nil {
			return nil, fmt.Errorf("load usage count: %w", err)
		}
		return &Decision{CanUse: false, CurrentUsage: count, Limit: limit, Plan: string(plan)}, nil
	}

	admitted, err := t.usage.ReserveOne(userID, usageType, month, year, limit)
	if err != nil {
		return nil, fmt.Errorf("reserve usage slot: %w", err)
	}

	count, err := t.usage.GetCount(userID, usageType, month, year)
	if err != nil {
		return nil, fmt.Errorf("load usage count: %w", err)
	}

	return &Decision{
		CanUse:       admitted,
		CurrentUsage: count,
		Limit:        limit,
		Plan:         string(plan),
	}, nil
}

// Release returns a reserved slot after a failed submission.
func (t *Tracker) Release(userID uint, usageType string) error {
	now := t.now()
	return t.usage.ReleaseOne(userID, usageType, int(now.Month()), now.Year())
}

// Track records n completed calls without an admission check. It backs
// administrative corrections and imports, not the request path.
func (t *Tracker) Track(userID uint, usageType string, n int) error {
	now := t.now()
	return t.usage.Increment(userID, usageType, int(now.Month()), now.Year(), n)
}

// CurrentCount returns the user's metered call count for the current month.
func (t *Tracker) CurrentCount(userID uint, usageType string) (int, error) {
	now := t.now()
	return t.usage.GetCount(userID, usageType, int(now.Month()), now.Year())
}

// YearStats builds the twelve-month usage series for one calendar year.
// Months without a counter row report zero.
func (t *Tracker) YearStats(userID uint, usageType string, year int) (*Stats, error) {
	plan, limit, _, err := t.entitlement(userID)
	if err != nil {
		return nil, err
	}
	if plan == "" {
		plan = entitlements.PlanFree
		limit = entitlements.MonthlyLimit(plan)
	}

	records, err := t.usage.ListByYear(userID, usageType, year)
	if err != nil {
		return nil, fmt.Errorf("load usage records: %w", err)
	}

	counts := make(map[int]int, len(records))
	total := 0
	for _, r := range records {
		counts[r.Month] = r.Count
		total += r.Count
	}

	monthly := make([]MonthUsage, 0, 12)
	for m := time.January; m <= time.December; m++ {
		monthly = append(monthly, MonthUsage{
			Month: m.String()[:3],
			Count: counts[int(m)],
		})
	}

	now := t.now()
	current := 0
	if year == now.Year() {
		current = counts[int(now.Month())]
	}

	return &Stats{
		Plan:         string(plan),
		Limit:        limit,
		CurrentUsage: current,
		TotalUsage:   total,
		MonthlyData:  monthly,
	}, nil
}
