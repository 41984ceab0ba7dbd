package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/contentswap/contentswap/app/models"
	"github.com/contentswap/contentswap/internal/pkg/cache"
	"github.com/contentswap/contentswap/internal/pkg/database"
	"github.com/contentswap/contentswap/internal/pkg/faceswap"
)

const (
	CacheKeyUsers          = "statistics:users:total"
	CacheKeySwapsTotal     = "statistics:swaps:total"
	CacheKeySwapsSucceeded = "statistics:swaps:succeeded"
	CacheExpiration        = 30 * time.Minute
)

// ServiceStats are the public counters shown on the landing page.
type ServiceStats struct {
	TotalUsers     int `json:"total_users"`
	TotalSwaps     int `json:"total_swaps"`
	SwapsSucceeded int `json:"swaps_succeeded"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cached counters are stale
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached counters when stale
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Failed to update statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// UpdateStatisticsCache recomputes all counters and stores them in redis
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	// Swap totals come from the flushed per-model counters
	var totalSwaps int64
	if err := db.Model(&models.SwapModelStat{}).
		Select("COALESCE(SUM(count), 0)").Scan(&totalSwaps).Error; err != nil {
		return err
	}

	var succeeded int64
	if err := db.Model(&models.SwapModelStat{}).
		Select("COALESCE(SUM(count), 0)").
		Where("status = ?", string(faceswap.StatusSucceeded)).
		Scan(&succeeded).Error; err != nil {
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeySwapsTotal, strconv.FormatInt(totalSwaps, 10), CacheExpiration); err != nil {
		return err
	}
	return cache.Set(CacheKeySwapsSucceeded, strconv.FormatInt(succeeded, 10), CacheExpiration)
}

// GetServiceStats returns the cached counters, refreshing them when stale.
func GetServiceStats() ServiceStats {
	UpdateCacheIfNeeded()

	stats := ServiceStats{}
	if v, err := cache.GetInt(CacheKeyUsers); err == nil {
		stats.TotalUsers = v
	}
	if v, err := cache.GetInt(CacheKeySwapsTotal); err == nil {
		stats.TotalSwaps = v
	}
	if v, err := cache.GetInt(CacheKeySwapsSucceeded); err == nil {
		stats.SwapsSucceeded = v
	}
	return stats
}
