package cron

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"

	"github.com/pterodactyl/hangar/system"
)

// Pruner removes activity entries older than the given time.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type pruneCron struct {
	mu        *system.AtomicBool
	pruner    Pruner
	retention time.Duration
	now       func() time.Time
}

func newPruneCron(p Pruner, retention time.Duration) *pruneCron {
	return &pruneCron{
		mu:        system.NewAtomicBool(false),
		pruner:    p,
		retention: retention,
		now:       time.Now,
	}
}

// Run deletes every activity entry older than the retention period. Only one run
// can be active at a time, overlapping calls return ErrCronRunning.
func (pc *pruneCron) Run(ctx context.Context) error {
	// Don't execute this cron if there is currently one running. Once this task is completed
	// go ahead and mark it as no longer running.
	if !pc.mu.SwapIf(true) {
		return errors.WithStack(ErrCronRunning)
	}
	defer pc.mu.Store(false)

	n, err := pc.pruner.Prune(ctx, pc.now().Add(-pc.retention))
	if err != nil {
		return errors.WrapIf(err, "cron: failed to prune activity")
	}
	if n > 0 {
		log.WithField("cron", "activity").WithField("removed", n).Debug("pruned old activity events")
	}
	return nil
}
