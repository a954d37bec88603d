package series

import (
	"fmt"
	"math"
	"time"
)

// Interpolate resamples one segment onto a uniform grid that starts at the
// segment's first timestamp and advances by step, never passing the last
// timestamp. Each field is filled independently by time-weighted linear
// interpolation between the nearest non-missing originals on either side of a
// grid point; a grid point that coincides with a non-missing original keeps
// that value. Points with no non-missing original on both sides stay missing.
//
// A single-sample segment yields that sample unchanged.
func Interpolate(seg Series, step time.Duration) (Series, error) {
	if step <= 0 {
		return Series{}, fmt.Errorf("interpolate: step must be > 0, got %s", step)
	}
	if len(seg.Samples) == 0 {
		return Series{}, fmt.Errorf("interpolate: %w", ErrEmptyInput)
	}
	if err := checkOrdered(seg); err != nil {
		return Series{}, fmt.Errorf("interpolate: %w", err)
	}

	if len(seg.Samples) == 1 {
		only := seg.Samples[0]
		return seg.withSamples([]Sample{{
			Time:   only.Time,
			Values: append([]float64(nil), only.Values...),
		}}), nil
	}

	grid := Grid(seg.First(), seg.Last(), step)
	out := make([]Sample, len(grid))
	for i, t := range grid {
		out[i] = Sample{Time: t, Values: make([]float64, len(seg.Fields))}
	}

	for f := range seg.Fields {
		fillField(seg.Samples, f, out)
	}

	return seg.withSamples(out), nil
}

// Grid returns first, first+step, ... up to and including last when it falls
// on the grid.
func Grid(first, last time.Time, step time.Duration) []time.Time {
	if step <= 0 || last.Before(first) {
		return nil
	}
	n := int(last.Sub(first)/step) + 1
	grid := make([]time.Time, n)
	for k := range grid {
		grid[k] = first.Add(time.Duration(k) * step)
	}
	return grid
}

type point struct {
	t time.Time
	v float64
}

// fillField writes field f of every grid sample in out from the originals.
func fillField(orig []Sample, f int, out []Sample) {
	pts := make([]point, 0, len(orig))
	for _, smp := range orig {
		if !Missing(smp.Values[f]) {
			pts = append(pts, point{t: smp.Time, v: smp.Values[f]})
		}
	}

	p := 0
	for i := range out {
		t := out[i].Time
		for p+1 < len(pts) && !pts[p+1].t.After(t) {
			p++
		}

		switch {
		case len(pts) == 0 || t.Before(pts[0].t):
			out[i].Values[f] = math.NaN()
		case pts[p].t.Equal(t):
			out[i].Values[f] = pts[p].v
		case p+1 < len(pts):
			out[i].Values[f] = lerp(pts[p], pts[p+1], t)
		default:
			out[i].Values[f] = math.NaN()
		}
	}
}

func lerp(a, b point, t time.Time) float64 {
	span := float64(b.t.Sub(a.t))
	frac := float64(t.Sub(a.t)) / span
	return a.v + (b.v-a.v)*frac
}

// Resample segments a merged series and interpolates every segment at the
// interval estimate, concatenating the results in segment order.
func Resample(s Series) (Series, Segmentation, error) {
	seg, err := Segment(s)
	if err != nil {
		return Series{}, Segmentation{}, err
	}

	var samples []Sample
	for _, part := range seg.Split(s) {
		res, err := Interpolate(part, seg.Interval)
		if err != nil {
			return Series{}, Segmentation{}, err
		}
		samples = append(samples, res.Samples...)
	}

	return s.withSamples(samples), seg, nil
}
