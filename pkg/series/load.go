package series

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// Table is one tabular snapshot source: a header row and string cells.
// Rows may be shorter than the header; absent trailing cells are empty.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// LoadResult is the unified, unordered output of Loader.Load.
type LoadResult struct {
	Series Series

	// Dropped counts rows discarded for a missing or malformed timestamp.
	Dropped int

	// Skipped holds one *SourceError per source that contributed no rows
	// because it could not be interpreted at all.
	Skipped []error
}

// Loader reads snapshot tables into one in-memory Series.
type Loader struct {
	// Fields is the exact column set to keep, in output order.
	Fields []string

	// TimeColumn names the timestamp column. Defaults to TimeColumn.
	TimeColumn string

	logger *slog.Logger
}

// NewLoader creates a Loader for fields. A nil fields slice selects
// DefaultFields.
func NewLoader(fields []string, logger *slog.Logger) *Loader {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		Fields:     fields,
		TimeColumn: TimeColumn,
		logger:     logger,
	}
}

// Load concatenates tables in the given order. Rows with an unparseable or
// missing timestamp are dropped; columns outside the field set are ignored.
// A source that is empty after filtering contributes zero rows without error.
//
// Load fails with ErrEmptyInput when no tables are given. Callers decide
// whether an all-dropped result is fatal; Merge reports it as ErrEmptyInput.
// Rows with an explicit offset and naive rows cannot share one series: the
// naive ones would need a source zone the zoned ones must not get, so such a
// mix fails with ErrTimezoneConversion.
func (l *Loader) Load(tables ...Table) (LoadResult, error) {
	if len(tables) == 0 {
		return LoadResult{}, fmt.Errorf("load: no snapshot sources: %w", ErrEmptyInput)
	}

	timeCol := l.TimeColumn
	if timeCol == "" {
		timeCol = TimeColumn
	}

	res := LoadResult{
		Series: Series{Fields: append([]string(nil), l.Fields...)},
	}

	var zonedRows, naiveRows int
	var zonedSrc, naiveSrc string

	for i, t := range tables {
		l.logger.Info(fmt.Sprintf("[%d/%d] reading source", i+1, len(tables)), "source", t.Name)

		samples, dropped, zoned, err := l.loadTable(t, timeCol)
		if err != nil {
			l.logger.Warn("skipping source", "source", t.Name, "error", err)
			res.Skipped = append(res.Skipped, err)
			continue
		}

		res.Series.Samples = append(res.Series.Samples, samples...)
		res.Dropped += dropped
		if zoned > 0 {
			zonedRows += zoned
			zonedSrc = t.Name
		}
		if naive := len(samples) - zoned; naive > 0 {
			naiveRows += naive
			naiveSrc = t.Name
		}

		if dropped > 0 {
			l.logger.Debug("dropped rows with malformed timestamps", "source", t.Name, "rows", dropped)
		}
	}

	if zonedRows > 0 && naiveRows > 0 {
		return LoadResult{}, fmt.Errorf("load: %d rows carry a UTC offset (e.g. %s) and %d do not (e.g. %s): %w",
			zonedRows, zonedSrc, naiveRows, naiveSrc, ErrTimezoneConversion)
	}
	res.Series.Zoned = zonedRows > 0

	l.logger.Info("sources loaded",
		"sources", len(tables),
		"skipped", len(res.Skipped),
		"rows", len(res.Series.Samples),
		"dropped", res.Dropped,
	)

	return res, nil
}

// loadTable returns the parsed samples, the dropped row count and how many
// samples carried an offset.
func (l *Loader) loadTable(t Table, timeCol string) ([]Sample, int, int, error) {
	columns := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		name := strings.TrimSpace(h)
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	timeIdx, ok := columns[timeCol]
	if !ok {
		return nil, 0, 0, &SourceError{Source: t.Name, Err: fmt.Errorf("missing %q column", timeCol)}
	}

	fieldIdx := make([]int, len(l.Fields))
	for i, f := range l.Fields {
		idx, ok := columns[f]
		if !ok {
			idx = -1
			l.logger.Warn("field column missing, treating as unread", "source", t.Name, "field", f)
		}
		fieldIdx[i] = idx
	}

	samples := make([]Sample, 0, len(t.Rows))
	dropped := 0
	zoned := 0

	for _, row := range t.Rows {
		ts, hasZone, err := ParseTimestamp(cell(row, timeIdx))
		if err != nil {
			dropped++
			continue
		}
		if hasZone {
			zoned++
		}

		vals := make([]float64, len(l.Fields))
		for i, idx := range fieldIdx {
			vals[i] = parseValue(cell(row, idx))
		}

		samples = append(samples, Sample{Time: ts, Values: vals})
	}

	return samples, dropped, zoned, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseValue converts a cell to a reading; anything non-numeric is missing.
func parseValue(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

var naiveLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// excelEpoch is day zero of the 1900 spreadsheet date system as used after
// the 1900 leap-year quirk (serial 60).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxExcelSerial is 9999-12-31, the last date a spreadsheet can hold.
const maxExcelSerial = 2958465

// ParseTimestamp parses a snapshot time cell. Naive values are returned as
// wall-clock times in the UTC location with zoned=false. Values carrying an
// explicit offset are returned as UTC instants with zoned=true. Bare numbers
// are read as spreadsheet date serials.
func ParseTimestamp(raw string) (t time.Time, zoned bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, ErrMalformedTimestamp
	}

	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, false, nil
		}
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true, nil
		}
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial >= 1 && serial < maxExcelSerial+1 {
			// Whole days go through AddDate; a Duration overflows past ~292 years.
			days := math.Floor(serial)
			ms := math.Round((serial - days) * 24 * 60 * 60 * 1000)
			return excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond), false, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
}
