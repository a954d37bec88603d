package series

import (
	"fmt"
	"sort"
	"time"
)

// Segmentation annotates a merged series with contiguous runs.
type Segmentation struct {
	// Interval is the median gap between consecutive samples.
	Interval time.Duration

	// Threshold is the largest gap allowed inside a segment (2 × Interval).
	Threshold time.Duration

	// Labels holds the segment number of each sample, starting at 0.
	Labels []int

	// Count is the number of segments.
	Count int
}

// IntervalEstimate returns the median gap between consecutive samples of a
// merged series. With an even number of gaps the two middle gaps are averaged.
func IntervalEstimate(s Series) (time.Duration, error) {
	if len(s.Samples) < 2 {
		return 0, fmt.Errorf("interval estimate over %d samples: %w", len(s.Samples), ErrInsufficientData)
	}
	if err := checkOrdered(s); err != nil {
		return 0, err
	}

	gaps := make([]time.Duration, len(s.Samples)-1)
	for i := 1; i < len(s.Samples); i++ {
		gaps[i-1] = s.Samples[i].Time.Sub(s.Samples[i-1].Time)
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })

	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid], nil
	}
	return gaps[mid-1] + (gaps[mid]-gaps[mid-1])/2, nil
}

// Segment partitions a merged series into runs whose internal gaps are all at
// most twice the interval estimate. A sample starts a new segment when the gap
// to its predecessor exceeds that threshold.
func Segment(s Series) (Segmentation, error) {
	interval, err := IntervalEstimate(s)
	if err != nil {
		return Segmentation{}, fmt.Errorf("segment: %w", err)
	}

	threshold := 2 * interval
	labels := make([]int, len(s.Samples))
	seg := 0
	for i := 1; i < len(s.Samples); i++ {
		if s.Samples[i].Time.Sub(s.Samples[i-1].Time) > threshold {
			seg++
		}
		labels[i] = seg
	}

	return Segmentation{
		Interval:  interval,
		Threshold: threshold,
		Labels:    labels,
		Count:     seg + 1,
	}, nil
}

// Split returns the segments of s in order. s must be the series the
// segmentation was computed from.
func (g Segmentation) Split(s Series) []Series {
	out := make([]Series, 0, g.Count)
	start := 0
	for i := 1; i <= len(s.Samples); i++ {
		if i == len(s.Samples) || g.Labels[i] != g.Labels[start] {
			out = append(out, s.withSamples(s.Samples[start:i:i]))
			start = i
		}
	}
	return out
}
