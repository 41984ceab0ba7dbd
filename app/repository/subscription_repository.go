package repository

import (
	"time"

	"github.com/contentswap/contentswap/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByTradeNo(tradeNo string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("merchant_trade_no = ?", tradeNo).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Save(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *subscriptionRepository) UpsertPendingUpgrade(userID uint, plan, tradeNo string) error {
	now := time.Now()
	sub := &models.Subscription{
		UserID:             userID,
		Plan:               plan,
		Status:             models.SubscriptionStatusIncomplete,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(models.BillingPeriod),
		MerchantTradeNo:    tradeNo,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan",
			"status",
			"merchant_trade_no",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *subscriptionRepository) MarkExpired() (int64, error) {
	now := time.Now()

	// cancel-at-period-end wins over past-due
	canceled := r.db.Model(&models.Subscription{}).
		Where("plan <> ? AND status = ? AND current_period_end < ? AND cancel_at_period_end = ?",
			"FREE", models.SubscriptionStatusActive, now, true).
		Update("status", models.SubscriptionStatusCanceled)
	if canceled.Error != nil {
		return 0, canceled.Error
	}

	pastDue := r.db.Model(&models.Subscription{}).
		Where("plan <> ? AND status = ? AND current_period_end < ?",
			"FREE", models.SubscriptionStatusActive, now).
		Update("status", models.SubscriptionStatusPastDue)
	if pastDue.Error != nil {
		return canceled.RowsAffected, pastDue.Error
	}

	return canceled.RowsAffected + pastDue.RowsAffected, nil
}
