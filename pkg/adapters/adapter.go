// Package adapters provides gridsnap data source connectors that poll an
// external dashboard and normalize one response into a DataFrame.
//
// Each adapter implements the Adapter interface. Available adapters:
//   - HTTPAdapter: generic adapter for any REST API with JSON responses,
//     extracting one time column and any number of named value columns
//     through gjson paths.
//
// The "ercot" factory kind is an HTTPAdapter preset for the ERCOT
// ancillary-services dashboard.
//
// Adapters only pull and shape data. Writing snapshots and reconstructing
// series is left to the snapshot and series packages.
package adapters

import (
	"context"
)

// TimeLayout is the layout of the time column in every DataFrame: naive UTC
// wall clock with optional milliseconds.
const TimeLayout = "2006-01-02 15:04:05.999"

// Row is a single observation keyed by column name. The time column holds a
// string in TimeLayout; value columns hold float64, or nil when the source
// had no reading.
type Row map[string]any

// DataFrame is one polled response.
type DataFrame struct {
	// Columns lists the column names in output order, time column first.
	Columns []string
	Rows    []Row
}

// Adapter is the interface that all gridsnap adapters implement.
//
// Collect is synchronous and must respect context cancellation and deadlines.
type Adapter interface {
	// Collect polls the source once and returns the observations it reports,
	// sorted by time.
	Collect(ctx context.Context) (*DataFrame, error)

	// Name returns a short identifier for the adapter, e.g. "ercot".
	Name() string
}
