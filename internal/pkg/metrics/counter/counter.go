package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/contentswap/contentswap/internal/pkg/cache"
	"github.com/contentswap/contentswap/internal/pkg/database"
)

const swapResultsKey = "swap:counters:results"

// fieldSep joins model and status into one hash field. Model refs contain
// slashes but never pipes.
const fieldSep = "|"

// AddSwapResult increments the pending counter for one (model, status)
// pair in Redis. A background flusher moves the totals to the database.
func AddSwapResult(model, status string) error {
	ctx := context.Background()
	field := model + fieldSep + status
	return cache.GetClient().HIncrBy(ctx, swapResultsKey, field, 1).Err()
}

// FlushAll drains the pending swap result counters into swap_model_stats.
func FlushAll() error {
	return flushSwapResults()
}

// flushSwapResults drains the Redis hash atomically and applies batched
// upserts to the stats table. RENAME to a temporary key keeps in-flight
// increments from being lost while draining.
func flushSwapResults() error {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", swapResultsKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", swapResultsKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	type pair struct {
		model  string
		status string
		inc    int64
	}
	pairs := make([]pair, 0, len(data))
	for field, v := range data {
		model, status, ok := strings.Cut(field, fieldSep)
		if !ok || model == "" || status == "" {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{model: model, status: status, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].model != pairs[j].model {
			return pairs[i].model < pairs[j].model
		}
		return pairs[i].status < pairs[j].status
	})

	// INSERT ... ON DUPLICATE KEY UPDATE keeps the whole batch one round trip
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("INSERT INTO swap_model_stats (model, status, count, created_at, updated_at) VALUES ")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("(?, ?, ?, NOW(), NOW())")
		args = append(args, p.model, p.status, p.inc)
	}
	builder.WriteString(" ON DUPLICATE KEY UPDATE count = count + VALUES(count), updated_at = NOW()")

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return db.Exec(builder.String(), args...).Error
}
