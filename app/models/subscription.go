package models

import "time"

const (
	SubscriptionStatusActive     = "ACTIVE"
	SubscriptionStatusCanceled   = "CANCELED"
	SubscriptionStatusPastDue    = "PAST_DUE"
	SubscriptionStatusIncomplete = "INCOMPLETE"
)

// BillingPeriod is the fixed length of one subscription period. The gateway
// integration bills month by month, not pro-rata.
const BillingPeriod = 30 * 24 * time.Hour

// Subscription holds the single billing state of a user. Exactly one row
// exists per user; it is created as FREE/ACTIVE at registration and mutated
// only by upgrade requests and verified payment callbacks.
type Subscription struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Plan               string    `gorm:"type:varchar(20);not null;default:'FREE'" json:"plan"`
	Status             string    `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	CurrentPeriodStart time.Time `gorm:"type:timestamp" json:"current_period_start"`
	CurrentPeriodEnd   time.Time `gorm:"type:timestamp;index" json:"current_period_end"`
	MerchantTradeNo    string    `gorm:"type:varchar(20);index" json:"-"`
	CancelAtPeriodEnd  bool      `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewFreeSubscription returns the initial subscription created at signup.
func NewFreeSubscription(userID uint) *Subscription {
	now := time.Now()
	return &Subscription{
		UserID:             userID,
		Plan:               "FREE",
		Status:             SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(BillingPeriod),
	}
}

// IsActive reports whether the subscription entitles the user right now.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}
