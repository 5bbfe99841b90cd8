package verifier

import (
	"context"
	"time"

	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/pkg/logger"
)

// Store is the subscription storage used by the sweep.
type Store interface {
	FindStaleSubscriptions(ctx context.Context, olderThan time.Time, sampleSize int) ([]*models.SubscriptionCheck, error)
	SetSubscriptionActive(ctx context.Context, id int64, active bool, at time.Time) error
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Checked     int
	Deactivated int
	Failed      int
}

// Sweeper re-verifies a bounded random sample of older subscriptions per run
// and marks the ones no longer backed by a membership as inactive.
type Sweeper struct {
	logger   *logger.Logger
	verifier *Verifier
	store    Store
	pacer    *Pacer

	batchSize int
	minAge    time.Duration
}

func NewSweeper(verifier *Verifier, store Store, pacer *Pacer, batchSize int, minAge time.Duration, logger *logger.Logger) *Sweeper {
	return &Sweeper{
		logger:    logger.With("component", "verification-sweep"),
		verifier:  verifier,
		store:     store,
		pacer:     pacer,
		batchSize: batchSize,
		minAge:    minAge,
	}
}

// Sweep checks up to batchSize subscriptions created before now-minAge.
// A storage failure on one subscription is counted and logged; the run
// goes on with the rest.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult

	checks, err := s.store.FindStaleSubscriptions(ctx, now.Add(-s.minAge), s.batchSize)
	if err != nil {
		return res, err
	}
	if len(checks) == 0 {
		return res, nil
	}

	err = Each(ctx, s.pacer, checks, func(ctx context.Context, c *models.SubscriptionCheck) {
		res.Checked++
		if s.verifier.Verify(ctx, c.UserID, c.ChannelUsername) {
			return
		}
		// shutting down, not a verdict on the user
		if ctx.Err() != nil {
			return
		}
		if err := s.store.SetSubscriptionActive(ctx, c.SubscriptionID, false, now); err != nil {
			res.Failed++
			s.logger.Errorw("Failed to deactivate subscription", "subscription_id", c.SubscriptionID, "error", err)
			return
		}
		res.Deactivated++
		s.logger.Infow("Subscription deactivated", "subscription_id", c.SubscriptionID,
			"user_id", c.UserID, "channel", c.ChannelUsername)
	})

	s.logger.Infow("Verification sweep finished", "checked", res.Checked, "deactivated", res.Deactivated, "failed", res.Failed)
	return res, err
}
