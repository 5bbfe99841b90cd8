// Package channels tracks the lifecycle of partner channels: expiry,
// subscriber targets, hot offers and operator overrides.
package channels

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/core-coin/rota/internal/metrics"
	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/pkg/logger"
)

// Deactivation reasons, also used as metric labels.
const (
	ReasonExpired       = "expired"
	ReasonTargetReached = "target_reached"
	ReasonOperator      = "operator"
)

// Store is the storage the tracker needs.
type Store interface {
	models.ChannelRepository
	CountActiveSubscriptions(ctx context.Context, channelID int64) (int64, error)
}

// Tracker applies channel state transitions. Automation only ever moves a
// channel from active to inactive; Activate is the operator-only way back.
type Tracker struct {
	logger   *logger.Logger
	store    Store
	notifier models.AdminNotifier

	hotMultiplier decimal.Decimal
}

func NewTracker(store Store, notifier models.AdminNotifier, hotMultiplier decimal.Decimal, logger *logger.Logger) *Tracker {
	return &Tracker{
		logger:        logger.With("component", "channels"),
		store:         store,
		notifier:      notifier,
		hotMultiplier: hotMultiplier,
	}
}

// ExpireChannels deactivates every active channel whose end date is at or
// before now and notifies operators once per deactivated channel.
// Failures on one channel do not stop the others; they are returned joined.
func (t *Tracker) ExpireChannels(ctx context.Context, now time.Time) (int, error) {
	expired, err := t.store.FindActiveChannelsPastEndDate(ctx, now)
	if err != nil {
		return 0, err
	}

	var (
		deactivated int
		errs        []error
	)
	for _, c := range expired {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg := fmt.Sprintf("Channel @%s expired on %s and was deactivated", c.Username, c.EndDate.UTC().Format(time.RFC3339))
		changed, err := t.deactivate(ctx, c, ReasonExpired, msg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			deactivated++
		}
	}
	return deactivated, errors.Join(errs...)
}

// ReconcileTargetChannels recomputes the subscriber count of every active
// target channel from its active subscriptions, stores it and deactivates
// channels that met their target.
func (t *Tracker) ReconcileTargetChannels(ctx context.Context) (int, error) {
	targets, err := t.store.FindActiveTargetChannels(ctx)
	if err != nil {
		return 0, err
	}

	var (
		deactivated int
		errs        []error
	)
	for _, c := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		count, err := t.store.CountActiveSubscriptions(ctx, c.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", c.ID, err))
			continue
		}
		if err := t.store.UpdateChannelSubscribers(ctx, c.ID, count); err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", c.ID, err))
			continue
		}
		if count != c.CurrentSubscribers {
			t.logger.Debugw("Subscriber count reconciled", "channel", c.Username, "from", c.CurrentSubscribers, "to", count)
		}
		c.CurrentSubscribers = count
		if !c.TargetReached() {
			continue
		}

		msg := fmt.Sprintf("Channel @%s reached its target of %d subscribers (%d) and was deactivated",
			c.Username, *c.TargetSubscribers, count)
		changed, err := t.deactivate(ctx, c, ReasonTargetReached, msg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			deactivated++
		}
	}
	return deactivated, errors.Join(errs...)
}

// PurgeStaleHotOffers clears hot offer flags raised more than retention ago.
// The channels themselves are untouched. A flag with no known start is kept
// and timed from now.
func (t *Tracker) PurgeStaleHotOffers(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	cleared, err := t.store.ClearStaleHotOffers(ctx, now, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		t.logger.Infow("Stale hot offers cleared", "count", cleared)
	}
	return cleared, nil
}

// Activate reactivates a channel. Only operators call this.
func (t *Tracker) Activate(ctx context.Context, id int64) error {
	changed, err := t.store.SetChannelActive(ctx, id, true)
	if err != nil {
		return err
	}
	if changed {
		t.logger.Infow("Channel reactivated by operator", "channel_id", id)
	}
	return nil
}

// Deactivate forces a channel inactive on operator request.
func (t *Tracker) Deactivate(ctx context.Context, id int64) error {
	c, err := t.store.GetChannel(ctx, id)
	if err != nil {
		return err
	}
	_, err = t.deactivate(ctx, c, ReasonOperator, fmt.Sprintf("Channel @%s was deactivated by an operator", c.Username))
	return err
}

// SetHotOffer toggles the hot offer flag of a channel.
func (t *Tracker) SetHotOffer(ctx context.Context, id int64, enabled bool, now time.Time) error {
	return t.store.SetChannelHotOffer(ctx, id, enabled, now)
}

// Multiplier returns the reward multiplier of a channel: the hot offer
// multiplier while the channel is a hot offer, one otherwise.
func (t *Tracker) Multiplier(c *models.Channel) decimal.Decimal {
	if c == nil || !c.IsHotOffer || t.hotMultiplier.IsZero() {
		return decimal.NewFromInt(1)
	}
	return t.hotMultiplier
}

// RewardFor returns the subscription reward of a channel, scaled by the hot
// offer multiplier when the channel is a hot offer.
func (t *Tracker) RewardFor(c *models.Channel) decimal.Decimal {
	return decimal.NewFromInt(c.RewardStars).Mul(t.Multiplier(c))
}

// deactivate flips the channel to inactive and notifies operators only when
// this call made the transition, so concurrent jobs notify once.
func (t *Tracker) deactivate(ctx context.Context, c *models.Channel, reason, message string) (bool, error) {
	changed, err := t.store.SetChannelActive(ctx, c.ID, false)
	if err != nil {
		return false, fmt.Errorf("deactivate channel %d: %w", c.ID, err)
	}
	if !changed {
		return false, nil
	}

	t.logger.Infow("Channel deactivated", "channel", c.Username, "channel_id", c.ID, "reason", reason)
	metrics.DefaultMetrics.RecordDeactivation(reason)
	t.notifier.NotifyAdmins(ctx, message)
	return true, nil
}
