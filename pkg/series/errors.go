package series

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when there are no snapshot sources or every
	// row was dropped while loading.
	ErrEmptyInput = errors.New("series: empty input")

	// ErrInsufficientData is returned when fewer than two samples reach the
	// segmenter, so no interval estimate exists.
	ErrInsufficientData = errors.New("series: insufficient data for interval estimate")

	// ErrTimezoneConversion is returned when a series that already carries
	// zone information is localized again.
	ErrTimezoneConversion = errors.New("series: timezone conversion")

	// ErrMalformedTimestamp marks a time value that cannot be parsed. Rows
	// carrying one are dropped by the loader.
	ErrMalformedTimestamp = errors.New("series: malformed timestamp")

	// ErrUnordered is returned when a stage that needs a merged series
	// receives timestamps that are not strictly increasing.
	ErrUnordered = errors.New("series: timestamps not strictly increasing")
)

// SourceError is a loader failure confined to one snapshot source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
