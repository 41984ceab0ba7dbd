package repository

import (
	"errors"

	"github.com/contentswap/contentswap/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a usage repository backed by GORM.
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

// ensureRow makes sure the per-month counter row exists before any
// conditional update runs against it.
func (r *usageRepository) ensureRow(userID uint, usageType string, month, year int) error {
	record := &models.UsageRecord{
		UserID: userID,
		Type:   usageType,
		Month:  month,
		Year:   year,
		Count:  0,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}, {Name: "month"}, {Name: "year"}},
		DoNothing: true,
	}).Create(record).Error
}

func (r *usageRepository) Increment(userID uint, usageType string, month, year, n int) error {
	if err := r.ensureRow(userID, usageType, month, year); err != nil {
		return err
	}
	return r.db.Model(&models.UsageRecord{}).
		Where("user_id = ? AND type = ? AND month = ? AND year = ?", userID, usageType, month, year).
		Update("count", gorm.Expr("count + ?", n)).Error
}

// ReserveOne atomically increments the counter only while it is still
// below limit. The row count of the conditional update is the verdict,
// so two concurrent callers racing for the last slot cannot both win.
func (r *usageRepository) ReserveOne(userID uint, usageType string, month, year, limit int) (bool, error) {
	if err := r.ensureRow(userID, usageType, month, year); err != nil {
		return false, err
	}
	result := r.db.Model(&models.UsageRecord{}).
		Where("user_id = ? AND type = ? AND month = ? AND year = ? AND count < ?",
			userID, usageType, month, year, limit).
		Update("count", gorm.Expr("count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseOne gives a reserved slot back. The count floor is zero.
func (r *usageRepository) ReleaseOne(userID uint, usageType string, month, year int) error {
	return r.db.Model(&models.UsageRecord{}).
		Where("user_id = ? AND type = ? AND month = ? AND year = ? AND count > 0",
			userID, usageType, month, year).
		Update("count", gorm.Expr("count - 1")).Error
}

func (r *usageRepository) GetCount(userID uint, usageType string, month, year int) (int, error) {
	var record models.UsageRecord
	err := r.db.Where("user_id = ? AND type = ? AND month = ? AND year = ?",
		userID, usageType, month, year).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return record.Count, nil
}

func (r *usageRepository) ListByYear(userID uint, usageType string, year int) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	err := r.db.Where("user_id = ? AND type = ? AND year = ?", userID, usageType, year).
		Order("month ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
