package quota

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/internal/pkg/entitlements"
)

type fakeSubRepo struct {
	sub *models.Subscription
}

func (f *fakeSubRepo) Create(sub *models.Subscription) error { f.sub = sub; return nil }

func (f *fakeSubRepo) GetByUserID(userID uint) (*models.Subscription, error) {
	if f.sub == nil || f.sub.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return f.sub, nil
}

func (f *fakeSubRepo) GetByTradeNo(tradeNo string) (*models.Subscription, error) {
	if f.sub == nil || f.sub.MerchantTradeNo != tradeNo {
		return nil, gorm.ErrRecordNotFound
	}
	return f.sub, nil
}

func (f *fakeSubRepo) Save(sub *models.Subscription) error { f.sub = sub; return nil }

func (f *fakeSubRepo) UpsertPendingUpgrade(userID uint, plan, tradeNo string) error {
	f.sub = &models.Subscription{UserID: userID, Plan: plan, Status: models.SubscriptionStatusIncomplete, MerchantTradeNo: tradeNo}
	return nil
}

func (f *fakeSubRepo) MarkExpired() (int64, error) { return 0, nil }

type usageKey struct {
	userID      uint
	usageType   string
	month, year int
}

type fakeUsageRepo struct {
	counts map[usageKey]int
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{counts: make(map[usageKey]int)}
}

func (f *fakeUsageRepo) Increment(userID uint, usageType string, month, year, n int) error {
	f.counts[usageKey{userID, usageType, month, year}] += n
	return nil
}

func (f *fakeUsageRepo) ReserveOne(userID uint, usageType string, month, year, limit int) (bool, error) {
	k := usageKey{userID, usageType, month, year}
	if f.counts[k] >= limit {
		return false, nil
	}
	f.counts[k]++
	return true, nil
}

func (f *fakeUsageRepo) ReleaseOne(userID uint, usageType string, month, year int) error {
	k := usageKey{userID, usageType, month, year}
	if f.counts[k] > 0 {
		f.counts[k]--
	}
	return nil
}

func (f *fakeUsageRepo) GetCount(userID uint, usageType string, month, year int) (int, error) {
	return f.counts[usageKey{userID, usageType, month, year}], nil
}

func (f *fakeUsageRepo) ListByYear(userID uint, usageType string, year int) ([]models.UsageRecord, error) {
	var out []models.UsageRecord
	for k, c := range f.counts {
		if k.userID == userID && k.usageType == usageType && k.year == year {
			out = append(out, models.UsageRecord{UserID: userID, Type: usageType, Month: k.month, Year: k.year, Count: c})
		}
	}
	return out, nil
}

func newTestTracker(sub *models.Subscription) (*Tracker, *fakeUsageRepo) {
	usage := newFakeUsageRepo()
	tracker := NewTracker(&fakeSubRepo{sub: sub}, usage)
	tracker.now = func() time.Time {
		return time.Date(2026, time.September, 15, 10, 0, 0, 0, time.UTC)
	}
	return tracker, usage
}

func activeSub(plan entitlements.Plan) *models.Subscription {
	return &models.Subscription{UserID: 1, Plan: string(plan), Status: models.SubscriptionStatusActive}
}

func TestCheckNoSubscription(t *testing.T) {
	tracker, _ := newTestTracker(nil)

	d, err := tracker.Check(1, models.UsageTypeFaceSwap)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.CanUse {
		t.Error("user without subscription must be denied")
	}
	if d.Plan != PlanNone {
		t.Errorf("plan = %q, want %q", d.Plan, PlanNone)
	}
}

func TestCheckFreeWithinQuota(t *testing.T) {
	tracker, usage := newTestTracker(activeSub(entitlements.PlanFree))
	usage.counts[usageKey{1, models.UsageTypeFaceSwap, 9, 2026}] = 2

	d, err := tracker.Check(1, models.UsageTypeFaceSwap)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.CanUse {
		t.Error("2 of 3 used, check must admit")
	}
	if d.CurrentUsage != 2 || d.Limit != 3 {
		t.Errorf("usage/limit = %d/%d, want 2/3", d.CurrentUsage, d.Limit)
	}
}

func TestCheckFreeIgnoresStatus(t *testing.T) {
	sub := activeSub(entitlements.PlanFree)
	sub.Status = models.SubscriptionStatusPastDue
	tracker, _ := newTestTracker(sub)

	d, err := tracker.Check(1, models.UsageTypeFaceSwap)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.CanUse {
		t.Error("free plan admits on remaining quota regardless of status")
	}
}

func TestCheckPaidRequiresActive(t *testing.T) {
	sub := activeSub(entitlements.PlanPro)
	sub.Status = models.SubscriptionStatusPastDue
	tracker, _ := newTestTracker(sub)

	d, err := tracker.Check(1, models.UsageTypeFaceSwap)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.CanUse {
		t.Error("past-due paid plan must be denied")
	}
	if d.Plan != "PRO" {
		t.Errorf("plan = %q, want PRO", d.Plan)
	}
}

func TestReserveConsumesSlots(t *testing.T) {
	tracker, _ := newTestTracker(activeSub(entitlements.PlanFree))

	for i := 0; i < 3; i++ {
		d, err := tracker.Reserve(1, models.UsageTypeFaceSwap)
		if err != nil {
			t.Fatalf("Reserve %d: %v", i, err)
		}
		if !d.CanUse {
			t.Fatalf("reserve %d of 3 must be admitted", i+1)
		}
	}

	d, err := tracker.Reserve(1, models.UsageTypeFaceSwap)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if d.CanUse {
		t.Error("fourth reserve on the free plan must be denied")
	}
	if d.CurrentUsage != 3 {
		t.Errorf("current usage = %d, want 3", d.CurrentUsage)
	}
}

func TestReserveDeniedDoesNotConsume(t *testing.T) {
	sub := activeSub(entitlements.PlanCreator)
	sub.Status = models.SubscriptionStatusIncomplete
	tracker, usage := newTestTracker(sub)

	d, err := tracker.Reserve(1, models.UsageTypeFaceSwap)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if d.CanUse {
		t.Fatal("incomplete paid plan must be denied")
	}
	if got := usage.counts[usageKey{1, models.UsageTypeFaceSwap, 9, 2026}]; got != 0 {
		t.Errorf("denied reserve consumed a slot, count = %d", got)
	}
}

func TestReleaseReturnsSlot(t *testing.T) {
	tracker, usage := newTestTracker(activeSub(entitlements.PlanFree))

	if _, err := tracker.Reserve(1, models.UsageTypeFaceSwap); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := tracker.Release(1, models.UsageTypeFaceSwap); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := usage.counts[usageKey{1, models.UsageTypeFaceSwap, 9, 2026}]; got != 0 {
		t.Errorf("count after release = %d, want 0", got)
	}
}

func TestYearStats(t *testing.T) {
	tracker, usage := newTestTracker(activeSub(entitlements.PlanCreator))
	usage.counts[usageKey{1, models.UsageTypeFaceSwap, 1, 2026}] = 4
	usage.counts[usageKey{1, models.UsageTypeFaceSwap, 9, 2026}] = 11
	usage.counts[usageKey{1, models.UsageTypeFaceSwap, 12, 2025}] = 99

	stats, err := tracker.YearStats(1, models.UsageTypeFaceSwap, 2026)
	if err != nil {
		t.Fatalf("YearStats: %v", err)
	}
	if len(stats.MonthlyData) != 12 {
		t.Fatalf("monthly series has %d entries, want 12", len(stats.MonthlyData))
	}
	if stats.TotalUsage != 15 {
		t.Errorf("total usage = %d, want 15", stats.TotalUsage)
	}
	if stats.CurrentUsage != 11 {
		t.Errorf("current usage = %d, want 11", stats.CurrentUsage)
	}
	if stats.MonthlyData[0].Month != "Jan" || stats.MonthlyData[0].Count != 4 {
		t.Errorf("january entry = %+v", stats.MonthlyData[0])
	}
	if stats.MonthlyData[8].Count != 11 {
		t.Errorf("september count = %d, want 11", stats.MonthlyData[8].Count)
	}
	if stats.Limit != 50 {
		t.Errorf("limit = %d, want 50", stats.Limit)
	}
}
