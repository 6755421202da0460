package relay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Schedule fixes the local time of day at which the daily broadcast fires.
type Schedule struct {
	TimeOfDay string `yaml:"time_of_day"` // "15:04" format
	Timezone  string `yaml:"timezone"`    // IANA name, e.g. "Europe/Amsterdam"
}

// RunDailySchedule invokes BroadcastDueItem once per day at the configured
// local time until ctx is cancelled. Each cycle is independent: a failed one
// never affects the next.
func (r *Relay) RunDailySchedule(ctx context.Context, sched Schedule) error {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", sched.Timezone, err)
	}
	at, err := time.Parse("15:04", sched.TimeOfDay)
	if err != nil {
		return fmt.Errorf("invalid broadcast time %q: %w", sched.TimeOfDay, err)
	}

	for {
		next := nextOccurrence(time.Now().In(loc), at.Hour(), at.Minute())
		r.logger.Info("next daily word broadcast scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.BroadcastDueItem(ctx)
		}
	}
}

// nextOccurrence returns the next time the wall clock in now's location reads
// hour:minute, strictly after now.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
