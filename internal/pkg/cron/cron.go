package cron

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/contentswap/contentswap/app/repository"
)

var (
	scheduler *cron.Cron
	once      sync.Once
)

// Start schedules the recurring background sweeps. Safe to call once at
// application boot.
func Start() {
	once.Do(func() {
		scheduler = cron.New()

		// Paid subscriptions whose period ran out without a renewal payment
		// are demoted every hour.
		if _, err := scheduler.AddFunc("@hourly", sweepExpiredSubscriptions); err != nil {
			log.Errorf("[Cron] Could not schedule subscription expiry sweep: %v", err)
		}

		scheduler.Start()
		log.Info("[Cron] Scheduler started")
	})
}

// Stop stops the scheduler and waits for running jobs to finish.
func Stop() {
	if scheduler != nil {
		ctx := scheduler.Stop()
		<-ctx.Done()
		log.Info("[Cron] Scheduler stopped")
	}
}

func sweepExpiredSubscriptions() {
	repos := repository.GetGlobalRepositories()
	affected, err := repos.Subscription.MarkExpired()
	if err != nil {
		log.Errorf("[Cron] Subscription expiry sweep failed: %v", err)
		return
	}
	if affected > 0 {
		log.Infof("[Cron] Demoted %d expired subscriptions", affected)
	}
}
