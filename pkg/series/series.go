// Package series reconstructs a continuous ancillary-services time series from
// irregularly sampled snapshot tables.
//
// The reconstruction is a strict chain of pure transformations:
//
//	Load → Merge → Segment → Interpolate → Localize
//
// Load turns snapshot tables into one unordered Series, dropping rows whose
// timestamp cannot be parsed. Merge sorts by time and removes duplicate
// timestamps. Segment estimates the sampling interval (median gap) and splits
// the series wherever a gap exceeds twice that estimate. Interpolate resamples
// each segment onto a uniform grid. Localize reinterprets the naive timestamps
// in a source zone and converts them to a display zone, with Civil and Days
// providing the zone-stripped, day-relative view used for per-day charts.
//
// Missing readings are represented as NaN. Timestamps of a naive (not yet
// localized) series are wall-clock values stored in the UTC location.
package series

import (
	"math"
	"time"
)

// TimeColumn is the name of the timestamp column in snapshot tables.
const TimeColumn = "Time"

// DefaultFields is the fixed set of ancillary-services fields captured by the
// dashboard poller.
var DefaultFields = []string{
	"REG-UP-Deployed",
	"REG-UP-Undeployed",
	"REG-DOWN-Deployed",
	"REG-DOWN-Undeployed",
	"RRS",
	"NON-SPIN",
	"ECRS",
	"Frequency",
}

// Sample is one observation. Values is aligned with the owning Series' Fields;
// a NaN entry is a missing reading.
type Sample struct {
	Time   time.Time
	Values []float64
}

// Series is a sequence of samples sharing one field set.
type Series struct {
	Fields  []string
	Samples []Sample

	// Zoned reports that the timestamps carry zone information, either because
	// the source data had explicit offsets or because the series was localized.
	Zoned bool
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Samples) }

// FieldIndex returns the position of field in s.Fields, or -1.
func (s Series) FieldIndex(field string) int {
	for i, f := range s.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

// Times returns the sample timestamps.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.Samples))
	for i, smp := range s.Samples {
		out[i] = smp.Time
	}
	return out
}

// Column returns the values of field in sample order. It returns nil when the
// field is not part of the series.
func (s Series) Column(field string) []float64 {
	idx := s.FieldIndex(field)
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		out[i] = smp.Values[idx]
	}
	return out
}

// First returns the first sample timestamp.
func (s Series) First() time.Time {
	if len(s.Samples) == 0 {
		return time.Time{}
	}
	return s.Samples[0].Time
}

// Last returns the last sample timestamp.
func (s Series) Last() time.Time {
	if len(s.Samples) == 0 {
		return time.Time{}
	}
	return s.Samples[len(s.Samples)-1].Time
}

// Missing reports whether v represents a missing reading.
func Missing(v float64) bool {
	return math.IsNaN(v)
}

// withSamples returns a copy of s's metadata holding samples.
func (s Series) withSamples(samples []Sample) Series {
	return Series{
		Fields:  s.Fields,
		Samples: samples,
		Zoned:   s.Zoned,
	}
}
