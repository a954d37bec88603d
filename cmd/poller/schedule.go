package main

import (
	"context"
	"time"
)

// Schedule gates polls on the wall clock of Zone: a poll fires at every
// multiple of Every counted from local midnight, and after each poll the loop
// sleeps Settle before waiting for the next slot.
type Schedule struct {
	Every  time.Duration
	Settle time.Duration
	Zone   *time.Location
}

// Next returns the first slot at or after now. Every must be a whole number of
// minutes that divides 24h.
func (s Schedule) Next(now time.Time) time.Time {
	loc := s.Zone
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	step := int(s.Every / time.Minute)

	elapsed := now.Hour()*60 + now.Minute()
	k := elapsed / step
	if elapsed%step != 0 || now.Second() != 0 || now.Nanosecond() != 0 {
		k++
	}

	// Slots that fall in a DST gap normalize to a neighbouring instant; the
	// loop skips any that land before now.
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, k*step, 0, 0, loc)
	for next.Before(now) {
		k++
		next = time.Date(now.Year(), now.Month(), now.Day(), 0, k*step, 0, 0, loc)
	}
	return next
}

// sleepCtx blocks for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
