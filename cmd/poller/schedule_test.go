package main

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestSchedule_Next(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		every time.Duration
		zone  *time.Location
		now   time.Time
		want  time.Time
	}{
		{
			name:  "exactly on an even hour",
			every: 2 * time.Hour,
			zone:  time.UTC,
			now:   time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC),
		},
		{
			name:  "odd hour waits for the next even one",
			every: 2 * time.Hour,
			zone:  time.UTC,
			now:   time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC),
			want:  time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC),
		},
		{
			name:  "settle past the slot moves to the next one",
			every: 2 * time.Hour,
			zone:  time.UTC,
			now:   time.Date(2024, 6, 1, 14, 3, 0, 0, time.UTC),
			want:  time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC),
		},
		{
			name:  "seconds past the slot",
			every: 2 * time.Hour,
			zone:  time.UTC,
			now:   time.Date(2024, 6, 1, 14, 0, 1, 0, time.UTC),
			want:  time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC),
		},
		{
			name:  "rolls over midnight",
			every: 2 * time.Hour,
			zone:  time.UTC,
			now:   time.Date(2024, 6, 1, 23, 10, 0, 0, time.UTC),
			want:  time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "quarter hours",
			every: 15 * time.Minute,
			zone:  time.UTC,
			now:   time.Date(2024, 6, 1, 9, 16, 0, 0, time.UTC),
			want:  time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "aligned to the zone's wall clock",
			every: 2 * time.Hour,
			zone:  chicago,
			// 14:30 UTC is 09:30 CDT; next even local hour is 10:00 CDT.
			now:  time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC),
			want: time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC),
		},
		{
			name:  "standard time offset",
			every: 2 * time.Hour,
			zone:  chicago,
			// 09:30 UTC is 03:30 CST.
			now:  time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
			want: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Schedule{Every: tt.every, Zone: tt.zone}
			got := s.Next(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.now, got, tt.want)
			}
			if got.Before(tt.now) {
				t.Errorf("Next returned a time in the past")
			}
		})
	}
}

func TestSleepCtx(t *testing.T) {
	if err := sleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepCtx() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepCtx() on canceled ctx = %v, want context.Canceled", err)
	}
}
