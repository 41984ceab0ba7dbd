package repository

import (
	"github.com/contentswap/contentswap/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// SubscriptionRepository defines the interface for subscription state
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByUserID(userID uint) (*models.Subscription, error)
	GetByTradeNo(tradeNo string) (*models.Subscription, error)
	Save(sub *models.Subscription) error
	// UpsertPendingUpgrade writes the tentative pre-payment state for a user:
	// plan=target, status=INCOMPLETE, pending trade reference.
	UpsertPendingUpgrade(userID uint, plan, tradeNo string) error
	// MarkExpired demotes paid ACTIVE subscriptions whose period has ended.
	MarkExpired() (int64, error)
}

// UsageRepository defines the interface for monthly usage counters.
// All mutations are single-statement and concurrency safe.
type UsageRepository interface {
	// Increment adds n to the (user, type, month, year) counter,
	// creating the row when missing.
	Increment(userID uint, usageType string, month, year, n int) error
	// ReserveOne increments the counter by one only while it stays below
	// limit; it reports whether the reservation was admitted.
	ReserveOne(userID uint, usageType string, month, year, limit int) (bool, error)
	// ReleaseOne undoes a reservation after a downstream failure (floor 0).
	ReleaseOne(userID uint, usageType string, month, year int) error
	GetCount(userID uint, usageType string, month, year int) (int, error)
	ListByYear(userID uint, usageType string, year int) ([]models.UsageRecord, error)
}

// WebhookEventRepository persists gateway callbacks idempotently.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Subscription SubscriptionRepository
	Usage        UsageRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Usage:        NewUsageRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
