package models

import "time"

// SwapModelStat aggregates terminal swap-job outcomes per inference model.
// Counters are buffered in redis and flushed periodically; the table is for
// operational visibility, not quota accounting.
type SwapModelStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Model     string    `gorm:"type:varchar(100);not null;index:ux_swap_model_stats_model_status,unique,priority:1" json:"model"`
	Status    string    `gorm:"type:varchar(20);not null;index:ux_swap_model_stats_model_status,unique,priority:2" json:"status"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
