package series

import (
	"fmt"
	"sort"
	"time"
)

// Default zone names.
const (
	DefaultSourceZone  = "UTC"
	DefaultDisplayZone = "America/Chicago"
)

// LoadZone resolves an IANA zone name. "Local" selects the host zone.
func LoadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", name, err)
	}
	return loc, nil
}

// Localize reads the naive timestamps of s as wall-clock times in source and
// converts them to display. The result is zone-aware; localizing it again
// fails with ErrTimezoneConversion, as does localizing a series whose source
// data already carried offsets.
//
// Conversion goes through the zone database, so DST transitions of both zones
// are honored.
func Localize(s Series, source, display *time.Location) (Series, error) {
	if source == nil || display == nil {
		return Series{}, fmt.Errorf("localize: nil location: %w", ErrTimezoneConversion)
	}
	if s.Zoned {
		return Series{}, fmt.Errorf("localize: series already carries zone information: %w", ErrTimezoneConversion)
	}

	out := make([]Sample, len(s.Samples))
	for i, smp := range s.Samples {
		w := smp.Time
		instant := time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), source)
		out[i] = Sample{Time: instant.In(display), Values: smp.Values}
	}

	res := s.withSamples(out)
	res.Zoned = true
	return res, nil
}

// InZone moves the instants of a zone-aware series into display. Unlike
// Localize it never reinterprets wall clocks.
func InZone(s Series, display *time.Location) (Series, error) {
	if display == nil {
		return Series{}, fmt.Errorf("in zone: nil location: %w", ErrTimezoneConversion)
	}
	if !s.Zoned {
		return Series{}, fmt.Errorf("in zone: series has naive timestamps: %w", ErrTimezoneConversion)
	}
	out := make([]Sample, len(s.Samples))
	for i, smp := range s.Samples {
		out[i] = Sample{Time: smp.Time.In(display), Values: smp.Values}
	}
	return s.withSamples(out), nil
}

// Civil strips zone information from s, keeping each sample's wall-clock
// reading in its current location. Around a DST fall-back the result may hold
// repeated civil times; it is meant for day-relative plotting only.
func Civil(s Series) Series {
	out := make([]Sample, len(s.Samples))
	for i, smp := range s.Samples {
		w := smp.Time
		out[i] = Sample{
			Time:   time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), time.UTC),
			Values: smp.Values,
		}
	}
	res := s.withSamples(out)
	res.Zoned = false
	return res
}

// Day is one civil calendar date of a series.
type Day struct {
	// Date is civil midnight of the day, in the UTC location.
	Date time.Time

	// Hours is each sample's wall-clock offset from civil midnight in hours,
	// [0, 24). On a DST fall-back day the repeated hour maps onto the same
	// values twice, so Hours is not monotonic there.
	Hours []float64

	// Series holds the day's samples.
	Series Series
}

// Label returns the date as YYYY-MM-DD.
func (d Day) Label() string {
	return d.Date.Format(time.DateOnly)
}

// Days groups a zone-aware series by civil date in its own location. Dates are
// returned in ascending order; within a day samples keep series order.
func Days(s Series) []Day {
	civil := Civil(s)

	byDate := make(map[time.Time]*Day)
	var dates []time.Time

	for _, smp := range civil.Samples {
		t := smp.Time
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

		d, ok := byDate[midnight]
		if !ok {
			d = &Day{Date: midnight, Series: civil.withSamples(nil)}
			byDate[midnight] = d
			dates = append(dates, midnight)
		}
		d.Hours = append(d.Hours, t.Sub(midnight).Hours())
		d.Series.Samples = append(d.Series.Samples, smp)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]Day, len(dates))
	for i, date := range dates {
		out[i] = *byDate[date]
	}
	return out
}
