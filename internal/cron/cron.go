package cron

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/go-co-op/gocron"

	"github.com/pterodactyl/hangar/config"
	"github.com/pterodactyl/hangar/system"
)

const ErrCronRunning = errors.Sentinel("cron: job already running")

var o system.AtomicBool

// Scheduler configures the internal cronjob system for hangar and returns the scheduler
// instance to the caller. This should only be called once per application lifecycle, additional
// calls will result in an error being returned.
func Scheduler(ctx context.Context, pruner Pruner) (*gocron.Scheduler, error) {
	if !o.SwapIf(true) {
		return nil, errors.New("cron: cannot call scheduler more than once in application lifecycle")
	}
	cfg := config.Get()
	l, err := time.LoadLocation(cfg.System.Timezone)
	if err != nil {
		return nil, errors.Wrap(err, "cron: failed to parse configured system timezone")
	}

	activity := newPruneCron(pruner, time.Duration(cfg.Activity.RetentionDays)*time.Hour*24)

	s := gocron.NewScheduler(l)
	if cfg.Activity.Enabled && cfg.Activity.RetentionDays > 0 {
		interval := cfg.Activity.PruneInterval
		if interval <= 0 {
			interval = time.Hour
		}
		_, err := s.Tag("activity").Every(interval).Do(func() {
			if err := activity.Run(ctx); err != nil {
				if errors.Is(err, ErrCronRunning) {
					log.WithField("cron", "activity").Warn("cron: process is already running, skipping...")
				} else {
					log.WithField("error", err).Error("cron: failed to prune activity events")
				}
			}
		})
		if err != nil {
			return nil, errors.Wrap(err, "cron: failed to register activity pruning job")
		}
	}

	return s, nil
}
