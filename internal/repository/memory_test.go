package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/rota/internal/models"
)

func TestMemorySetChannelActiveReportsTransition(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	id := db.AddChannel(models.Channel{Username: "rota_news", IsActive: true})

	changed, err := db.SetChannelActive(ctx, id, false)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = db.SetChannelActive(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = db.SetChannelActive(ctx, 999, false)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryAddNeverOverwrites(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	first := db.AddChannel(models.Channel{ID: 7, Username: "first_channel"})
	assert.Equal(t, int64(7), first)
	auto := db.AddChannel(models.Channel{Username: "auto_channel"})
	assert.Equal(t, int64(8), auto)

	second := db.AddChannel(models.Channel{ID: 7, Username: "second_channel"})
	assert.NotEqual(t, first, second)
	assert.NotEqual(t, auto, second)

	c, err := db.GetChannel(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "first_channel", c.Username)
	c, err = db.GetChannel(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "second_channel", c.Username)

	low := db.AddSubscription(models.Subscription{ID: 3, UserID: 1})
	assert.Equal(t, int64(3), low)
	again := db.AddSubscription(models.Subscription{ID: 3, UserID: 2})
	assert.NotEqual(t, low, again)
	s, ok := db.Subscription(low)
	require.True(t, ok)
	assert.Equal(t, int64(1), s.UserID)
}

func TestMemoryFindStaleSubscriptions(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	now := time.Now()

	channelID := db.AddChannel(models.Channel{Username: "rota_news", IsActive: true})
	for i := 0; i < 5; i++ {
		db.AddSubscription(models.Subscription{UserID: int64(i + 1), ChannelID: channelID, IsActive: true, SubscribedDate: now.Add(-2 * time.Hour)})
	}
	db.AddSubscription(models.Subscription{UserID: 10, ChannelID: channelID, IsActive: true, SubscribedDate: now})
	db.AddSubscription(models.Subscription{UserID: 11, ChannelID: channelID, IsActive: false, SubscribedDate: now.Add(-2 * time.Hour)})

	all, err := db.FindStaleSubscriptions(ctx, now.Add(-time.Hour), 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	for _, c := range all {
		assert.Equal(t, "rota_news", c.ChannelUsername)
		assert.LessOrEqual(t, c.UserID, int64(5))
	}

	sample, err := db.FindStaleSubscriptions(ctx, now.Add(-time.Hour), 2)
	require.NoError(t, err)
	assert.Len(t, sample, 2)
}

func TestMemoryDeleteOlderThan(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	now := time.Now()
	old := now.Add(-48 * time.Hour)

	db.AddViolation(models.Violation{UserID: 1, CreatedAt: old})
	db.AddViolation(models.Violation{UserID: 2, CreatedAt: now})
	active := db.AddSubscription(models.Subscription{UserID: 1, IsActive: true, SubscribedDate: old})
	inactive := db.AddSubscription(models.Subscription{UserID: 2, SubscribedDate: old, UnsubscribedDate: &old})

	n, err := db.DeleteOlderThan(ctx, models.RetentionViolations, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, db.ViolationCount())

	n, err = db.DeleteOlderThan(ctx, models.RetentionInactiveSubscriptions, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, ok := db.Subscription(active)
	assert.True(t, ok)
	_, ok = db.Subscription(inactive)
	assert.False(t, ok)

	_, err = db.DeleteOlderThan(ctx, models.RetentionTable("wallets"), now)
	assert.Error(t, err)
}

func TestMemoryWheelSettingsAreCopied(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	setting := &models.WheelSetting{
		Variant:    "normal",
		FallbackID: "empty",
		Entries:    []models.PrizeEntry{{ID: "empty", Weight: 1, Amount: decimal.Zero}},
	}
	require.NoError(t, db.SaveWheelSetting(ctx, setting))
	setting.Entries[0].ID = "mutated"

	loaded, err := db.LoadWheelSettings(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "empty", loaded[0].Entries[0].ID)
	assert.False(t, loaded[0].UpdatedAt.IsZero())
}

func TestMemoryCountUnfulfilledPrizesSince(t *testing.T) {
	db := NewMemoryDB()
	now := time.Now()
	db.AddUserPrize(models.UserPrize{UserID: 1, PrizeCode: "gift", WonAt: now.Add(-time.Minute)})
	db.AddUserPrize(models.UserPrize{UserID: 2, PrizeCode: "gift", WonAt: now.Add(-time.Minute), Fulfilled: true})
	db.AddUserPrize(models.UserPrize{UserID: 3, PrizeCode: "gift", WonAt: now.Add(-2 * time.Hour)})

	n, err := db.CountUnfulfilledPrizesSince(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
