// Package export writes finalized series to Parquet files.
//
// Files use a long layout with one row per timestamp and field, so a series
// with any field set shares the same schema.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/HatiCode/gridsnap/pkg/series"
)

// LocalLayout is the format of Row.Local.
const LocalLayout = "2006-01-02 15:04:05"

// Row is one field reading in Parquet format.
type Row struct {
	TimestampMs int64   `parquet:"timestamp_ms"`
	Local       string  `parquet:"local,zstd"`
	Field       string  `parquet:"field,zstd"`
	Value       float64 `parquet:"value"`
	Valid       bool    `parquet:"valid"`
}

// Rows flattens s into rows, ordered by time and then by field. Missing
// readings are kept with Valid=false and a zero Value.
func Rows(s series.Series) []Row {
	rows := make([]Row, 0, len(s.Samples)*len(s.Fields))
	for _, smp := range s.Samples {
		local := smp.Time.Format(LocalLayout)
		for i, field := range s.Fields {
			row := Row{
				TimestampMs: smp.Time.UnixMilli(),
				Local:       local,
				Field:       field,
			}
			if v := smp.Values[i]; !series.Missing(v) {
				row.Value = v
				row.Valid = true
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteParquet writes s to path with zstd compression, replacing any
// existing file.
func WriteParquet(path string, s series.Series) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close file: %w", cerr)
		}
	}()

	w := parquet.NewGenericWriter[Row](f, parquet.Compression(&parquet.Zstd))
	if _, err := w.Write(Rows(s)); err != nil {
		w.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// ReadParquet reads all rows of a file written by WriteParquet.
func ReadParquet(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	r := parquet.NewGenericReader[Row](f)
	defer r.Close()

	rows := make([]Row, r.NumRows())
	n, err := r.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows[:n], nil
}
