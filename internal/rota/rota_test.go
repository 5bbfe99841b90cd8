package rota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/rota/internal/config"
	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/internal/repository"
	"github.com/core-coin/rota/internal/scheduler"
	"github.com/core-coin/rota/internal/wheel"
	"github.com/core-coin/rota/pkg/logger"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) NotifyAdmins(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type memberLookup struct{}

func (memberLookup) GetMembershipStatus(context.Context, string, int64) (models.MembershipStatus, error) {
	return models.MembershipMember, nil
}

var testNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Storage:                       config.StorageMemory,
		Timezone:                      "UTC",
		ExpireSweepInterval:           time.Hour,
		VerifySweepInterval:           time.Hour,
		ReconcileInterval:             time.Hour,
		CleanupAt:                     "03:00",
		PrizeAlertInterval:            time.Hour,
		VerifyBatchSize:               10,
		VerifyMinAge:                  time.Hour,
		MembershipTimeout:             time.Second,
		ViolationRetention:            30 * 24 * time.Hour,
		InactiveSubscriptionRetention: 30 * 24 * time.Hour,
		HotOfferRetention:             24 * time.Hour,
		HotOfferMultiplier:            decimal.NewFromInt(2),
		NotifyWorkers:                 1,
	}
}

func normalWheel() *models.WheelSetting {
	return &models.WheelSetting{
		Variant:    "normal",
		FallbackID: "empty",
		Entries: []models.PrizeEntry{
			{ID: "stars100", Weight: 10, Amount: decimal.NewFromInt(100)},
			{ID: "empty", Weight: 90, Amount: decimal.Zero},
		},
	}
}

func newTestRota(t *testing.T, db *repository.MemoryDB, src wheel.Source) (*Rota, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	r := NewRota(db, notifier, memberLookup{}, logger.NewNop(), testConfig(),
		WithRandomSource(src), WithClock(func() time.Time { return testNow }))
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = r.Stop(ctx)
	})
	return r, notifier
}

func seedCatalog(db *repository.MemoryDB) {
	db.AddPrize(models.Prize{Code: "stars100", Kind: "stars", Stars: 100})
	db.AddPrize(models.Prize{Code: "empty", Kind: "empty"})
	db.AddPrize(models.Prize{Code: "gift", Kind: "gift"})
}

func runJob(t *testing.T, r *Rota, name string) {
	t.Helper()
	before := jobRuns(r, name)
	ok, err := r.RunJob(name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		s := jobStatus(r, name)
		return s.Runs > before && !s.IsRunning
	}, 2*time.Second, 5*time.Millisecond)
}

func jobStatus(r *Rota, name string) models.JobStatus {
	for _, s := range r.JobStatus() {
		if s.Name == name {
			return s
		}
	}
	return models.JobStatus{}
}

func jobRuns(r *Rota, name string) int64 {
	return jobStatus(r, name).Runs
}

func TestStartLoadsStoredWheelsAndSkipsInvalid(t *testing.T) {
	db := repository.NewMemoryDB()
	seedCatalog(db)
	require.NoError(t, db.SaveWheelSetting(context.Background(), normalWheel()))
	require.NoError(t, db.SaveWheelSetting(context.Background(), &models.WheelSetting{
		Variant:    "mega",
		FallbackID: "empty",
		Entries:    []models.PrizeEntry{{ID: "jackpot", Weight: 1}, {ID: "empty", Weight: 1}},
	}))

	r, _ := newTestRota(t, db, fixedSource(0.05))

	_, ok := r.GetWheel("normal")
	assert.True(t, ok)
	_, ok = r.GetWheel("mega")
	assert.False(t, ok)

	res, err := r.Spin(context.Background(), "normal", 0)
	require.NoError(t, err)
	assert.Equal(t, "stars100", res.PrizeID)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(100)))

	_, err = r.Spin(context.Background(), "mega", 0)
	assert.ErrorIs(t, err, wheel.ErrUnknownVariant)
}

func TestSpinMultiplierFollowsChannelState(t *testing.T) {
	db := repository.NewMemoryDB()
	seedCatalog(db)
	require.NoError(t, db.SaveWheelSetting(context.Background(), normalWheel()))
	plain := db.AddChannel(models.Channel{Username: "plain_channel", IsActive: true})
	hot := db.AddChannel(models.Channel{Username: "hot_channel", IsActive: true})
	ended := db.AddChannel(models.Channel{Username: "ended_channel", IsActive: false, IsHotOffer: true})

	r, _ := newTestRota(t, db, fixedSource(0.05))
	ctx := context.Background()
	require.NoError(t, r.SetHotOffer(ctx, hot, true))

	tests := []struct {
		name      string
		channelID int64
		amount    int64
		hotOffer  bool
	}{
		{"no channel", 0, 100, false},
		{"plain channel", plain, 100, false},
		{"hot offer channel", hot, 200, true},
		{"inactive hot offer channel", ended, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Spin(ctx, "normal", tt.channelID)
			require.NoError(t, err)
			assert.Equal(t, "stars100", res.PrizeID)
			assert.True(t, res.Amount.Equal(decimal.NewFromInt(tt.amount)), res.Amount.String())
			assert.Equal(t, tt.hotOffer, res.HotOffer)
		})
	}

	_, err := r.Spin(ctx, "normal", 999)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// the flag decays with the cleanup job and the boost goes with it
	require.NoError(t, db.SetChannelHotOffer(ctx, hot, true, testNow.Add(-48*time.Hour)))
	runJob(t, r, JobStaleDataCleanup)
	res, err := r.Spin(ctx, "normal", hot)
	require.NoError(t, err)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(100)))
}

func TestUpdateWheel(t *testing.T) {
	db := repository.NewMemoryDB()
	seedCatalog(db)
	r, _ := newTestRota(t, db, fixedSource(0.5))
	ctx := context.Background()

	require.NoError(t, r.UpdateWheel(ctx, normalWheel()))
	stored, err := db.LoadWheelSettings(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "empty", stored[0].FallbackID)

	invalid := normalWheel()
	invalid.Entries[0].ID = "jackpot"
	err = r.UpdateWheel(ctx, invalid)
	require.ErrorIs(t, err, wheel.ErrInvalidTable)

	current, ok := r.GetWheel("normal")
	require.True(t, ok)
	assert.Equal(t, "stars100", current.Entries[0].ID)
	stored, _ = db.LoadWheelSettings(ctx)
	assert.Equal(t, "stars100", stored[0].Entries[0].ID)

	dist, err := r.Simulate("normal", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, dist.Counts["empty"])
}

func TestJobsAreRegistered(t *testing.T) {
	r, _ := newTestRota(t, repository.NewMemoryDB(), nil)

	var names []string
	for _, s := range r.JobStatus() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		JobExpiredChannelSweep,
		JobSubscriptionVerify,
		JobChannelReconcile,
		JobStaleDataCleanup,
		JobPrizeBacklogAlert,
	}, names)

	_, err := r.RunJob("missing")
	assert.ErrorIs(t, err, scheduler.ErrUnknownJob)
}

func TestExpiredChannelSweepJob(t *testing.T) {
	db := repository.NewMemoryDB()
	end := testNow.Add(-24 * time.Hour)
	id := db.AddChannel(models.Channel{Username: "rota_news", IsActive: true, EndDate: &end})

	r, notifier := newTestRota(t, db, nil)
	runJob(t, r, JobExpiredChannelSweep)

	c, err := db.GetChannel(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, c.IsActive)
	assert.Len(t, notifier.Messages(), 1)

	runJob(t, r, JobExpiredChannelSweep)
	assert.Len(t, notifier.Messages(), 1)
}

func TestReconciliationJob(t *testing.T) {
	db := repository.NewMemoryDB()
	target := int64(2)
	id := db.AddChannel(models.Channel{
		Username:          "rota_news",
		PlacementType:     models.PlacementTarget,
		IsActive:          true,
		TargetSubscribers: &target,
	})
	db.AddSubscription(models.Subscription{UserID: 1, ChannelID: id, IsActive: true, SubscribedDate: testNow})
	db.AddSubscription(models.Subscription{UserID: 2, ChannelID: id, IsActive: true, SubscribedDate: testNow})

	r, notifier := newTestRota(t, db, nil)
	runJob(t, r, JobChannelReconcile)

	c, _ := db.GetChannel(context.Background(), id)
	assert.Equal(t, int64(2), c.CurrentSubscribers)
	assert.False(t, c.IsActive)
	assert.Len(t, notifier.Messages(), 1)
}

func TestVerificationJobKeepsMembers(t *testing.T) {
	db := repository.NewMemoryDB()
	id := db.AddChannel(models.Channel{Username: "rota_news", IsActive: true})
	sub := db.AddSubscription(models.Subscription{UserID: 1, ChannelID: id, IsActive: true, SubscribedDate: testNow.Add(-2 * time.Hour)})

	r, _ := newTestRota(t, db, nil)
	runJob(t, r, JobSubscriptionVerify)

	s, _ := db.Subscription(sub)
	assert.True(t, s.IsActive)
}

func TestStaleDataCleanupJob(t *testing.T) {
	db := repository.NewMemoryDB()
	ctx := context.Background()
	longAgo := testNow.Add(-40 * 24 * time.Hour)
	recent := testNow.Add(-time.Hour)

	channelID := db.AddChannel(models.Channel{Username: "rota_news", IsActive: true})
	require.NoError(t, db.SetChannelHotOffer(ctx, channelID, true, testNow.Add(-48*time.Hour)))

	db.AddViolation(models.Violation{UserID: 1, ChannelID: channelID, CreatedAt: longAgo})
	db.AddViolation(models.Violation{UserID: 2, ChannelID: channelID, CreatedAt: recent})

	oldInactive := db.AddSubscription(models.Subscription{UserID: 1, ChannelID: channelID, SubscribedDate: longAgo, UnsubscribedDate: &longAgo})
	recentInactive := db.AddSubscription(models.Subscription{UserID: 2, ChannelID: channelID, SubscribedDate: longAgo, UnsubscribedDate: &recent})
	oldActive := db.AddSubscription(models.Subscription{UserID: 3, ChannelID: channelID, IsActive: true, SubscribedDate: longAgo})

	r, _ := newTestRota(t, db, nil)
	runJob(t, r, JobStaleDataCleanup)

	assert.Equal(t, 1, db.ViolationCount())
	_, ok := db.Subscription(oldInactive)
	assert.False(t, ok)
	_, ok = db.Subscription(recentInactive)
	assert.True(t, ok)
	_, ok = db.Subscription(oldActive)
	assert.True(t, ok, "active subscriptions are never purged")

	c, _ := db.GetChannel(ctx, channelID)
	assert.False(t, c.IsHotOffer)
	assert.True(t, c.IsActive)
}

func TestPrizeBacklogAlertJob(t *testing.T) {
	db := repository.NewMemoryDB()
	r, notifier := newTestRota(t, db, nil)

	runJob(t, r, JobPrizeBacklogAlert)
	assert.Empty(t, notifier.Messages())

	db.AddUserPrize(models.UserPrize{UserID: 1, PrizeCode: "gift", WonAt: testNow.Add(-10 * time.Minute)})
	db.AddUserPrize(models.UserPrize{UserID: 2, PrizeCode: "gift", WonAt: testNow.Add(-20 * time.Minute)})
	db.AddUserPrize(models.UserPrize{UserID: 3, PrizeCode: "gift", WonAt: testNow.Add(-20 * time.Minute), Fulfilled: true})
	db.AddUserPrize(models.UserPrize{UserID: 4, PrizeCode: "gift", WonAt: testNow.Add(-3 * time.Hour)})

	runJob(t, r, JobPrizeBacklogAlert)
	msgs := notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "2 prizes")
}

func TestChannelOperatorEdges(t *testing.T) {
	db := repository.NewMemoryDB()
	id := db.AddChannel(models.Channel{Username: "rota_news", IsActive: true})
	r, notifier := newTestRota(t, db, nil)
	ctx := context.Background()

	require.NoError(t, r.DeactivateChannel(ctx, id))
	require.NoError(t, r.ActivateChannel(ctx, id))
	require.NoError(t, r.SetHotOffer(ctx, id, true))

	c, _ := db.GetChannel(ctx, id)
	assert.True(t, c.IsActive)
	assert.True(t, c.IsHotOffer)
	require.NotNil(t, c.HotOfferSince)
	assert.Equal(t, testNow, *c.HotOfferSince)
	assert.Len(t, notifier.Messages(), 1)

	assert.ErrorIs(t, r.SetHotOffer(ctx, 999, true), models.ErrNotFound)
}
