package models

import (
	"context"
	"time"
)

// RetentionTable names a dataset purged by the cleanup job.
type RetentionTable string

const (
	// RetentionViolations purges violations created before the cutoff.
	RetentionViolations RetentionTable = "violations"
	// RetentionInactiveSubscriptions purges inactive subscriptions unsubscribed before the cutoff.
	// Active subscriptions are never deleted.
	RetentionInactiveSubscriptions RetentionTable = "inactive_subscriptions"
)

// ChannelRepository holds channel state operations used by the lifecycle tracker.
type ChannelRepository interface {
	GetChannel(ctx context.Context, id int64) (*Channel, error)
	FindActiveChannelsPastEndDate(ctx context.Context, now time.Time) ([]*Channel, error)
	FindActiveTargetChannels(ctx context.Context) ([]*Channel, error)
	// SetChannelActive moves the channel to the given state. It reports whether
	// the row changed, so concurrent writers can tell who made the transition.
	SetChannelActive(ctx context.Context, id int64, active bool) (bool, error)
	UpdateChannelSubscribers(ctx context.Context, id int64, count int64) error
	SetChannelHotOffer(ctx context.Context, id int64, hot bool, at time.Time) error
	// ClearStaleHotOffers drops the hot offer flag of channels flagged before cutoff.
	// A flag without a timestamp is stamped with now instead, which starts its
	// retention clock.
	ClearStaleHotOffers(ctx context.Context, now, cutoff time.Time) (int64, error)
}

// SubscriptionRepository holds subscription operations used by the verifier and reconciliation.
type SubscriptionRepository interface {
	CountActiveSubscriptions(ctx context.Context, channelID int64) (int64, error)
	// FindStaleSubscriptions returns a random sample of at most sampleSize active
	// subscriptions created before olderThan.
	FindStaleSubscriptions(ctx context.Context, olderThan time.Time, sampleSize int) ([]*SubscriptionCheck, error)
	SetSubscriptionActive(ctx context.Context, id int64, active bool, at time.Time) error
}

// Repository is the full storage contract of the engine.
type Repository interface {
	ChannelRepository
	SubscriptionRepository

	DeleteOlderThan(ctx context.Context, table RetentionTable, cutoff time.Time) (int64, error)
	CountUnfulfilledPrizesSince(ctx context.Context, since time.Time) (int64, error)

	ListPrizeCodes(ctx context.Context) ([]string, error)
	LoadWheelSettings(ctx context.Context) ([]*WheelSetting, error)
	SaveWheelSetting(ctx context.Context, setting *WheelSetting) error

	Close() error
}
