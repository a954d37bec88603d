// Package snapshot reads and writes the spreadsheet snapshots produced by the
// poller and consumed by the renderer.
//
// A snapshot is an .xlsx workbook whose first sheet holds a header row
// followed by one row per observation. Files are named
// <YYYYMMDD>-<HHMMSS>-<HHMMSS>.xlsx after the first and last observation
// times, so lexical order follows capture order.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/HatiCode/gridsnap/pkg/adapters"
	"github.com/HatiCode/gridsnap/pkg/series"
)

// Ext is the snapshot file extension.
const Ext = ".xlsx"

// List returns the snapshot files directly under dir in lexical order.
// Office lock files ("~$...") and directories are skipped.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots in %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), Ext) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}

	sort.Strings(files)
	return files, nil
}

// Read loads the first sheet of the workbook at path. Cells are returned raw,
// so date-formatted cells come back as spreadsheet serials.
func Read(path string) (series.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return series.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return series.Table{}, fmt.Errorf("%s: workbook has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return series.Table{}, fmt.Errorf("read sheet %q of %s: %w", sheets[0], path, err)
	}

	t := series.Table{Name: filepath.Base(path)}
	if len(rows) == 0 {
		return t, nil
	}

	t.Header = rows[0]
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

// ReadAll reads every path in order. A file that cannot be read is reported
// through onErr and skipped; ReadAll itself never fails.
func ReadAll(paths []string, onErr func(path string, err error)) []series.Table {
	tables := make([]series.Table, 0, len(paths))
	for _, p := range paths {
		t, err := Read(p)
		if err != nil {
			if onErr != nil {
				onErr(p, &series.SourceError{Source: filepath.Base(p), Err: err})
			}
			continue
		}
		tables = append(tables, t)
	}
	return tables
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// FileName derives the snapshot name from the first and last values of the
// time column of df.
func FileName(df *adapters.DataFrame, timeColumn string) (string, error) {
	if df == nil || len(df.Rows) == 0 {
		return "", errors.New("snapshot name: no rows")
	}

	first, err := rowTime(df.Rows[0], timeColumn)
	if err != nil {
		return "", fmt.Errorf("snapshot name: %w", err)
	}
	last, err := rowTime(df.Rows[len(df.Rows)-1], timeColumn)
	if err != nil {
		return "", fmt.Errorf("snapshot name: %w", err)
	}

	return first.Format("20060102-150405") + "-" + last.Format("150405") + Ext, nil
}

func rowTime(r adapters.Row, timeColumn string) (time.Time, error) {
	switch v := r[timeColumn].(type) {
	case time.Time:
		return v, nil
	case string:
		t, _, err := series.ParseTimestamp(v)
		return t, err
	default:
		return time.Time{}, fmt.Errorf("row has no usable %q value", timeColumn)
	}
}

// Write stores df as a snapshot workbook at path. The header is columns; each
// row contributes its values in column order, with nil left as an empty cell.
// The file is written to a temporary name in the same directory and renamed
// into place, so readers never observe a partial workbook.
func Write(path string, columns []string, df *adapters.DataFrame) error {
	if len(columns) == 0 {
		return errors.New("write snapshot: no columns")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	if df != nil {
		for i, r := range df.Rows {
			cells := make([]any, len(columns))
			for j, c := range columns {
				cells[j] = cellValue(r[c])
			}
			addr, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return fmt.Errorf("write snapshot row %d: %w", i, err)
			}
			if err := f.SetSheetRow(sheet, addr, &cells); err != nil {
				return fmt.Errorf("write snapshot row %d: %w", i, err)
			}
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*"+Ext)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// cellValue converts a row value into something excelize stores as a plain
// string or number.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.UTC().Format(adapters.TimeLayout)
	default:
		return x
	}
}
