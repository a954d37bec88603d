// Package chart renders finalized series as PNG line charts.
//
// Two views are produced per field: a continuous chart of the whole history
// and one chart per civil day with the x axis normalized to 0–24 hours.
// Missing readings break the line instead of being bridged.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/HatiCode/gridsnap/pkg/series"
)

// Default image size in pixels.
const (
	DefaultWidth  = 1600
	DefaultHeight = 600
)

// ErrNoData is returned when a field has no non-missing values to plot.
var ErrNoData = errors.New("no data to plot")

// PNGSink writes charts below Dir.
type PNGSink struct {
	Dir    string
	Width  int
	Height int
}

// NewPNGSink returns a sink writing into dir. Non-positive sizes fall back to
// the defaults.
func NewPNGSink(dir string, width, height int) *PNGSink {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &PNGSink{Dir: dir, Width: width, Height: height}
}

// YLabel returns the y axis label for field.
func YLabel(field string) string {
	if field == "Frequency" {
		return "Frequency (Hz)"
	}
	return field + " (MW)"
}

// ContinuousPath returns where the continuous chart of field is written.
func (p *PNGSink) ContinuousPath(field string) string {
	return filepath.Join(p.Dir, "all", slug.Make(field)+".png")
}

// DayPath returns where the chart of field for the given date is written.
func (p *PNGSink) DayPath(field, date string) string {
	name := slug.Make(field)
	return filepath.Join(p.Dir, "day", name, name+"_"+date+".png")
}

// Continuous renders field over the whole of s. Timestamps are labelled in
// the location of the series' first sample.
func (p *PNGSink) Continuous(s series.Series, field string) (string, error) {
	values := s.Column(field)
	if values == nil {
		return "", fmt.Errorf("field %q not in series", field)
	}

	times := s.Times()
	xs := make([]float64, len(times))
	for i, t := range times {
		xs[i] = gochart.TimeToFloat64(t)
	}

	lines := runs(xs, values)
	if len(lines) == 0 {
		return "", fmt.Errorf("%s: %w", field, ErrNoData)
	}

	loc := s.First().Location()
	first, last := times[0], times[len(times)-1]
	xMin, xMax := xs[0], xs[len(xs)-1]
	if xMax <= xMin {
		xMax = xMin + float64(time.Hour)
	}

	c := gochart.Chart{
		Title:  field,
		Width:  p.Width,
		Height: p.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: gochart.XAxis{
			Name:  "Time (" + loc.String() + ")",
			Range: &gochart.ContinuousRange{Min: xMin, Max: xMax},
			Ticks: timeTicks(first, last, loc),
		},
		YAxis: gochart.YAxis{
			Name:  YLabel(field),
			Range: valueRange(values),
		},
		Series: lines,
	}

	path := p.ContinuousPath(field)
	return path, render(c, path)
}

// Day renders field for a single civil day on a 0–24 h axis.
func (p *PNGSink) Day(d series.Day, field string) (string, error) {
	values := d.Series.Column(field)
	if values == nil {
		return "", fmt.Errorf("field %q not in series", field)
	}

	lines := runs(d.Hours, values)
	if len(lines) == 0 {
		return "", fmt.Errorf("%s %s: %w", field, d.Label(), ErrNoData)
	}

	ticks := make([]gochart.Tick, 0, 13)
	for h := 0; h <= 24; h += 2 {
		ticks = append(ticks, gochart.Tick{Value: float64(h), Label: strconv.Itoa(h)})
	}

	c := gochart.Chart{
		Title:  field + " " + d.Label(),
		Width:  p.Width,
		Height: p.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: gochart.XAxis{
			Name:  "Time (h)",
			Range: &gochart.ContinuousRange{Min: 0, Max: 24},
			Ticks: ticks,
		},
		YAxis: gochart.YAxis{
			Name:  YLabel(field),
			Range: valueRange(values),
		},
		Series: lines,
	}

	path := p.DayPath(field, d.Label())
	return path, render(c, path)
}

func render(c gochart.Chart, path string) error {
	var buf bytes.Buffer
	if err := c.Render(gochart.PNG, &buf); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

// runs splits the points into maximal stretches without missing values, one
// chart series each. Isolated points are drawn as dots.
func runs(xs, ys []float64) []gochart.Series {
	var out []gochart.Series
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		style := gochart.Style{
			StrokeColor: gochart.ColorBlue,
			StrokeWidth: 1.5,
		}
		if end-start == 1 {
			style = gochart.Style{StrokeWidth: 0, DotWidth: 3, DotColor: gochart.ColorBlue}
		}
		out = append(out, gochart.ContinuousSeries{
			XValues: xs[start:end],
			YValues: ys[start:end],
			Style:   style,
		})
		start = -1
	}

	for i, v := range ys {
		if series.Missing(v) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(ys))
	return out
}

// valueRange spans the non-missing values with a small margin. A flat line
// gets a unit-wide band around its value.
func valueRange(values []float64) *gochart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if series.Missing(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi <= lo {
		return &gochart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// timeTicks returns ticks aligned to whole hours or days in loc.
func timeTicks(first, last time.Time, loc *time.Location) []gochart.Tick {
	step := tickStep(last.Sub(first))
	first, last = first.In(loc), last.In(loc)

	var t time.Time
	if step >= 24*time.Hour {
		t = time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	} else {
		h := int(step / time.Hour)
		t = time.Date(first.Year(), first.Month(), first.Day(), first.Hour()-first.Hour()%h, 0, 0, 0, loc)
	}

	var ticks []gochart.Tick
	for ; !t.After(last); t = advance(t, step) {
		if t.Before(first) {
			continue
		}
		ticks = append(ticks, gochart.Tick{Value: gochart.TimeToFloat64(t), Label: t.Format("01-02 15:04")})
	}
	if len(ticks) < 2 {
		if !last.After(first) {
			last = first.Add(time.Hour)
		}
		ticks = []gochart.Tick{
			{Value: gochart.TimeToFloat64(first), Label: first.Format("01-02 15:04")},
			{Value: gochart.TimeToFloat64(last), Label: last.Format("01-02 15:04")},
		}
	}
	return ticks
}

func tickStep(span time.Duration) time.Duration {
	switch {
	case span <= 12*time.Hour:
		return time.Hour
	case span <= 36*time.Hour:
		return 2 * time.Hour
	case span <= 4*24*time.Hour:
		return 6 * time.Hour
	case span <= 14*24*time.Hour:
		return 24 * time.Hour
	default:
		days := int(span/(24*time.Hour))/10 + 1
		return time.Duration(days) * 24 * time.Hour
	}
}

// advance steps t by step, counting whole days on the calendar so day ticks
// stay at midnight across DST changes.
func advance(t time.Time, step time.Duration) time.Time {
	if step >= 24*time.Hour {
		return t.AddDate(0, 0, int(step/(24*time.Hour)))
	}
	return t.Add(step)
}
