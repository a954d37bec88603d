package series

import (
	"fmt"
	"sort"
)

// Merge sorts s by timestamp and removes duplicate timestamps.
//
// The sort is stable, so among rows sharing a timestamp the one loaded first
// (earlier source in load order, then earlier row) survives. The input is not
// modified. Merge fails with ErrEmptyInput when s has no samples.
func Merge(s Series) (Series, error) {
	if len(s.Samples) == 0 {
		return Series{}, fmt.Errorf("merge: no rows after loading: %w", ErrEmptyInput)
	}

	sorted := make([]Sample, len(s.Samples))
	copy(sorted, s.Samples)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	out := sorted[:1]
	for _, smp := range sorted[1:] {
		if smp.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, smp)
	}

	return s.withSamples(out), nil
}

// checkOrdered verifies strictly increasing timestamps.
func checkOrdered(s Series) error {
	for i := 1; i < len(s.Samples); i++ {
		if !s.Samples[i].Time.After(s.Samples[i-1].Time) {
			return fmt.Errorf("%w at index %d (%s after %s)", ErrUnordered, i,
				s.Samples[i].Time, s.Samples[i-1].Time)
		}
	}
	return nil
}
