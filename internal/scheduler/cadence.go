package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCadence is returned when registering a job with a cadence that can never fire.
var ErrInvalidCadence = errors.New("invalid cadence")

// Cadence decides when a job fires next.
type Cadence interface {
	// Next returns the first fire time strictly after now. anchor is the time
	// the job was started and is used by fixed-interval cadences.
	Next(anchor, now time.Time) time.Time
	String() string
	validate() error
}

type interval struct {
	every time.Duration
}

// Every fires every d, counted from the moment the job starts.
func Every(d time.Duration) Cadence {
	return interval{every: d}
}

func (c interval) Next(anchor, now time.Time) time.Time {
	return nextInterval(anchor, c.every, now)
}

func (c interval) String() string {
	return "every " + c.every.String()
}

func (c interval) validate() error {
	if c.every <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidCadence, c.every)
	}
	return nil
}

type daily struct {
	hour, minute int
	loc          *time.Location
}

// DailyAt fires once a day at hour:minute wall-clock time in loc.
// A nil loc means UTC.
func DailyAt(hour, minute int, loc *time.Location) Cadence {
	if loc == nil {
		loc = time.UTC
	}
	return daily{hour: hour, minute: minute, loc: loc}
}

func (c daily) Next(_, now time.Time) time.Time {
	return NextOccurrence(c.hour, c.minute, now.In(c.loc))
}

func (c daily) String() string {
	return fmt.Sprintf("daily at %02d:%02d %s", c.hour, c.minute, c.loc)
}

func (c daily) validate() error {
	if c.hour < 0 || c.hour > 23 || c.minute < 0 || c.minute > 59 {
		return fmt.Errorf("%w: bad time of day %d:%d", ErrInvalidCadence, c.hour, c.minute)
	}
	return nil
}

// NextOccurrence returns the next hour:minute in now's location: today if
// that moment is still strictly ahead of now, tomorrow otherwise.
func NextOccurrence(hour, minute int, now time.Time) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, m, d+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// nextInterval returns the next tick of a grid anchored at anchor with the
// given step. Ticks already in the past are skipped, not replayed.
func nextInterval(anchor time.Time, step time.Duration, now time.Time) time.Time {
	if now.Before(anchor) {
		return anchor.Add(step)
	}
	n := now.Sub(anchor)/step + 1
	return anchor.Add(n * step)
}
