package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reconciler periodically expires overdue live sessions. Its lifecycle is
// tied to the service process: Run blocks until ctx is cancelled.
type Reconciler struct {
	ctrl     *Controller
	interval time.Duration
	log      *zerolog.Logger
}

// NewReconciler creates a reconciler sweeping at the given interval.
func NewReconciler(ctrl *Controller, interval time.Duration, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{
		ctrl:     ctrl,
		interval: interval,
		log:      logger,
	}
}

// Run sweeps until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("session reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("session reconciler stopped")
			return
		case now := <-ticker.C:
			expired, err := r.ctrl.ExpireOverdue(ctx, now)
			if err != nil {
				r.log.Warn().Err(err).Msg("reconciliation sweep failed")
				continue
			}
			if expired > 0 {
				r.log.Info().Int("expired", expired).Msg("reconciliation sweep expired sessions")
			}
		}
	}
}
