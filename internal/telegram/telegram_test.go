package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgModels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/rota/internal/models"
)

type staticJobs []models.JobStatus

func (s staticJobs) JobStatus() []models.JobStatus { return s }

type backlogFunc func(ctx context.Context, since time.Time) (int64, error)

func (f backlogFunc) CountUnfulfilledPrizesSince(ctx context.Context, since time.Time) (int64, error) {
	return f(ctx, since)
}

func TestOperators(t *testing.T) {
	ops := NewOperators([]int64{30, 10, 20, 10})
	assert.Equal(t, []int64{10, 20, 30}, ops.IDs())
	assert.True(t, ops.IsOperator(20))
	assert.False(t, ops.IsOperator(40))
}

func TestMembershipStatus(t *testing.T) {
	tests := map[tgModels.ChatMemberType]models.MembershipStatus{
		tgModels.ChatMemberTypeOwner:         models.MembershipCreator,
		tgModels.ChatMemberTypeAdministrator: models.MembershipAdministrator,
		tgModels.ChatMemberTypeMember:        models.MembershipMember,
		tgModels.ChatMemberTypeRestricted:    models.MembershipRestricted,
		tgModels.ChatMemberTypeLeft:          models.MembershipLeft,
		tgModels.ChatMemberTypeBanned:        models.MembershipKicked,
		tgModels.ChatMemberType("unknown"):   models.MembershipError,
	}
	for in, want := range tests {
		assert.Equal(t, want, membershipStatus(&tgModels.ChatMember{Type: in}), string(in))
	}
	assert.Equal(t, models.MembershipError, membershipStatus(nil))
}

func TestCommandsIgnoreNonOperators(t *testing.T) {
	cmds := NewCommands(NewOperators([]int64{1}), staticJobs(nil), backlogFunc(nil), time.Hour)

	_, ok := cmds.Reply(context.Background(), 2, "/jobs")
	assert.False(t, ok)
	_, ok = cmds.Reply(context.Background(), 1, "/unknown")
	assert.False(t, ok)
	_, ok = cmds.Reply(context.Background(), 1, "")
	assert.False(t, ok)
}

func TestJobsCommand(t *testing.T) {
	jobs := staticJobs{
		{Name: "expired-channel-sweep", Cadence: "every 1m0s", LastRunAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), Runs: 4},
		{Name: "stale-data-cleanup", Cadence: "daily at 03:00 UTC", IsRunning: true, LastError: "job panicked: boom\nstack"},
	}
	cmds := NewCommands(NewOperators([]int64{1}), jobs, backlogFunc(nil), time.Hour)

	reply, ok := cmds.Reply(context.Background(), 1, "/jobs@rota_bot")
	require.True(t, ok)
	assert.Equal(t,
		"expired-channel-sweep (every 1m0s): idle, last run 2024-06-01T12:00:00Z, 4 runs\n"+
			"stale-data-cleanup (daily at 03:00 UTC): running, last run never, 0 runs, last error: job panicked: boom",
		reply)
}

func TestBacklogCommand(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var gotSince time.Time
	counter := backlogFunc(func(_ context.Context, since time.Time) (int64, error) {
		gotSince = since
		return 3, nil
	})
	cmds := NewCommands(NewOperators([]int64{1}), staticJobs(nil), counter, time.Hour)
	cmds.now = func() time.Time { return now }

	reply, ok := cmds.Reply(context.Background(), 1, "/backlog")
	require.True(t, ok)
	assert.Equal(t, "3 unfulfilled prizes in the last 1h0m0s", reply)
	assert.Equal(t, now.Add(-time.Hour), gotSince)

	cmds.backlog = backlogFunc(func(context.Context, time.Time) (int64, error) {
		return 0, errors.New("db down")
	})
	reply, ok = cmds.Reply(context.Background(), 1, "/backlog")
	require.True(t, ok)
	assert.Contains(t, reply, "db down")
}
