package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOccurrence(t *testing.T) {
	day := func(d, h, m, s int) time.Time {
		return time.Date(2024, time.March, d, h, m, s, 0, time.UTC)
	}

	tests := []struct {
		name         string
		hour, minute int
		now          time.Time
		want         time.Time
	}{
		{"later today", 3, 0, day(10, 2, 59, 0), day(10, 3, 0, 0)},
		{"already past today", 3, 0, day(10, 10, 0, 0), day(11, 3, 0, 0)},
		{"exactly now rolls to tomorrow", 3, 0, day(10, 3, 0, 0), day(11, 3, 0, 0)},
		{"one second before", 3, 0, day(10, 2, 59, 59), day(10, 3, 0, 0)},
		{"midnight from late evening", 0, 0, day(10, 23, 59, 59), day(11, 0, 0, 0)},
		{"midnight at exact midnight", 0, 0, day(10, 0, 0, 0), day(11, 0, 0, 0)},
		{"end of month", 3, 0, time.Date(2024, time.December, 31, 12, 0, 0, 0, time.UTC), time.Date(2025, time.January, 1, 3, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextOccurrence(tt.hour, tt.minute, tt.now))
		})
	}
}

func TestNextOccurrenceKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2024, time.March, 10, 1, 0, 0, 0, time.UTC) // 04:00 local

	next := DailyAt(3, 0, loc).Next(time.Time{}, now)
	assert.Equal(t, time.Date(2024, time.March, 11, 3, 0, 0, 0, loc), next)
	assert.True(t, next.Equal(time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)))
}

func TestNextInterval(t *testing.T) {
	anchor := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	step := time.Minute

	assert.Equal(t, anchor.Add(time.Minute), nextInterval(anchor, step, anchor))
	assert.Equal(t, anchor.Add(time.Minute), nextInterval(anchor, step, anchor.Add(30*time.Second)))
	assert.Equal(t, anchor.Add(2*time.Minute), nextInterval(anchor, step, anchor.Add(time.Minute)))
	// a slow run that overshoots several ticks resumes on the grid
	assert.Equal(t, anchor.Add(4*time.Minute), nextInterval(anchor, step, anchor.Add(3*time.Minute+10*time.Second)))
}

func TestCadenceValidation(t *testing.T) {
	require.ErrorIs(t, Every(0).validate(), ErrInvalidCadence)
	require.ErrorIs(t, Every(-time.Second).validate(), ErrInvalidCadence)
	require.ErrorIs(t, DailyAt(24, 0, nil).validate(), ErrInvalidCadence)
	require.ErrorIs(t, DailyAt(3, 60, nil).validate(), ErrInvalidCadence)
	require.NoError(t, DailyAt(0, 0, nil).validate())
	require.NoError(t, Every(time.Second).validate())

	assert.Equal(t, "every 1m0s", Every(time.Minute).String())
	assert.Equal(t, "daily at 03:00 UTC", DailyAt(3, 0, nil).String())
}
