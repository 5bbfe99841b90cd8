package rota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/internal/scheduler"
)

const (
	JobExpiredChannelSweep = "expired-channel-sweep"
	JobSubscriptionVerify  = "subscription-verification"
	JobChannelReconcile    = "channel-stats-reconciliation"
	JobStaleDataCleanup    = "stale-data-cleanup"
	JobPrizeBacklogAlert   = "prize-backlog-alert"
)

func (r *Rota) registerJobs() error {
	hour, minute, err := r.config.CleanupTime()
	if err != nil {
		return err
	}
	loc, err := r.config.Location()
	if err != nil {
		return err
	}

	jobs := []struct {
		name    string
		cadence scheduler.Cadence
		task    scheduler.Task
	}{
		{JobExpiredChannelSweep, scheduler.Every(r.config.ExpireSweepInterval), r.expireChannels},
		{JobSubscriptionVerify, scheduler.Every(r.config.VerifySweepInterval), r.verifySubscriptions},
		{JobChannelReconcile, scheduler.Every(r.config.ReconcileInterval), r.reconcileChannels},
		{JobStaleDataCleanup, scheduler.DailyAt(hour, minute, loc), r.cleanupStaleData},
		{JobPrizeBacklogAlert, scheduler.Every(r.config.PrizeAlertInterval), r.alertPrizeBacklog},
	}
	for _, j := range jobs {
		if err := r.scheduler.Register(j.name, j.cadence, j.task); err != nil {
			return fmt.Errorf("failed to register job: %w", err)
		}
	}
	return nil
}

func (r *Rota) expireChannels(ctx context.Context) error {
	n, err := r.tracker.ExpireChannels(ctx, r.now())
	if n > 0 {
		r.logger.Infow("Expired channels deactivated", "count", n)
	}
	return err
}

func (r *Rota) verifySubscriptions(ctx context.Context) error {
	_, err := r.sweeper.Sweep(ctx, r.now())
	return err
}

func (r *Rota) reconcileChannels(ctx context.Context) error {
	n, err := r.tracker.ReconcileTargetChannels(ctx)
	if n > 0 {
		r.logger.Infow("Target channels deactivated", "count", n)
	}
	return err
}

// cleanupStaleData applies the retention windows. Each purge runs even if
// an earlier one failed.
func (r *Rota) cleanupStaleData(ctx context.Context) error {
	now := r.now()
	var errs []error

	purges := []struct {
		table     models.RetentionTable
		retention time.Duration
	}{
		{models.RetentionViolations, r.config.ViolationRetention},
		{models.RetentionInactiveSubscriptions, r.config.InactiveSubscriptionRetention},
	}
	for _, p := range purges {
		cutoff := now.Add(-p.retention)
		deleted, err := r.repo.DeleteOlderThan(ctx, p.table, cutoff)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.logger.Infow("Retention purge finished", "table", p.table, "deleted", deleted, "cutoff", cutoff)
	}

	if _, err := r.tracker.PurgeStaleHotOffers(ctx, now, r.config.HotOfferRetention); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Rota) alertPrizeBacklog(ctx context.Context) error {
	window := r.config.PrizeAlertInterval
	count, err := r.repo.CountUnfulfilledPrizesSince(ctx, r.now().Add(-window))
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	r.notifier.NotifyAdmins(ctx, fmt.Sprintf("%d prizes won in the last %s are waiting for fulfillment", count, window))
	return nil
}
