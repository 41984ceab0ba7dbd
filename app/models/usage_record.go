package models

import "time"

// UsageTypeFaceSwap is the only metered feature today; the schema keys on the
// type so additional features can be metered without a migration.
const UsageTypeFaceSwap = "face_swap"

// UsageRecord counts metered feature calls per user and calendar month.
// Rows are created lazily on first use and never deleted; the per-month
// history feeds the usage chart. The count only moves through single-statement
// conditional updates, never read-modify-write.
type UsageRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_usage_user_type_month,unique,priority:1" json:"user_id"`
	Type      string    `gorm:"type:varchar(50);not null;index:ux_usage_user_type_month,unique,priority:2" json:"type"`
	Month     int       `gorm:"not null;index:ux_usage_user_type_month,unique,priority:3" json:"month"`
	Year      int       `gorm:"not null;index:ux_usage_user_type_month,unique,priority:4" json:"year"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
