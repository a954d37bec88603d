package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"
)

// Field maps one DataFrame column to a gjson path in the response.
type Field struct {
	Column string `json:"column"`
	Path   string `json:"path"`
}

// HTTPAdapter is a generic HTTP adapter that calls a REST endpoint and
// extracts one row per element of the timestamp array.
//
// Every field path must address an array aligned by index with the timestamp
// array; a field array that is shorter than the timestamp array, or an element
// that is null or non-numeric, yields a missing value (nil) for that row.
// Elements without a timestamp are skipped.
//
// Example configuration:
//
//	adapter := &HTTPAdapter{
//	    URL:             "https://api.example.com/grid",
//	    TimestampPath:   "samples.#.ts",
//	    TimestampFormat: "unix_milli",
//	    Fields: []Field{
//	        {Column: "Load", Path: "samples.#.load"},
//	        {Column: "Frequency", Path: "freq.#.hz"},
//	    },
//	}
type HTTPAdapter struct {
	// Source is the name reported by Name. Defaults to "http".
	Source string

	// URL is the endpoint to call (required).
	URL string

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are extra request headers. Values may use template variables.
	Headers map[string]string

	// Body is the request body template. Available variables:
	//   {{.Now}}          - request time as RFC3339
	//   {{.NowUnix}}      - request time as Unix seconds
	//   {{.NowUnixMilli}} - request time as Unix milliseconds
	// plus every entry of TemplateVars.
	Body string

	// TimeColumn names the time column. Defaults to "Time".
	TimeColumn string

	// TimestampPath is the gjson path of the timestamp array.
	TimestampPath string

	// TimestampFormat specifies how to parse timestamps:
	//   "rfc3339"    - RFC3339 strings (default)
	//   "unix"       - Unix seconds (float or int)
	//   "unix_milli" - Unix milliseconds (float or int)
	TimestampFormat string

	// Fields are the value columns, in output order.
	Fields []Field

	// HTTPClient is optional; if nil a client with a 10s timeout is used.
	HTTPClient *http.Client

	// TemplateVars are custom variables for Body and Headers templates.
	TemplateVars map[string]string
}

func (h *HTTPAdapter) Name() string {
	if h.Source != "" {
		return h.Source
	}
	return "http"
}

func (h *HTTPAdapter) timeColumn() string {
	if h.TimeColumn != "" {
		return h.TimeColumn
	}
	return "Time"
}

// Columns returns the DataFrame column names in output order.
func (h *HTTPAdapter) Columns() []string {
	cols := make([]string, 0, len(h.Fields)+1)
	cols = append(cols, h.timeColumn())
	for _, f := range h.Fields {
		cols = append(cols, f.Column)
	}
	return cols
}

// Collect implements Adapter.
func (h *HTTPAdapter) Collect(ctx context.Context) (*DataFrame, error) {
	if err := h.ValidateConfig(); err != nil {
		return &DataFrame{}, fmt.Errorf("http adapter: %w", err)
	}

	body, err := h.fetch(ctx)
	if err != nil {
		return &DataFrame{}, err
	}

	tsArray, ok := column(body, h.TimestampPath)
	if !ok {
		return &DataFrame{}, fmt.Errorf("timestamp path %q not found in response", h.TimestampPath)
	}

	fieldArrays := make([][]gjson.Result, len(h.Fields))
	for i, f := range h.Fields {
		arr, ok := column(body, f.Path)
		if !ok {
			return &DataFrame{}, fmt.Errorf("field %q: path %q not found in response", f.Column, f.Path)
		}
		fieldArrays[i] = arr
	}

	type stamped struct {
		ts  time.Time
		row Row
	}

	timeCol := h.timeColumn()
	rows := make([]stamped, 0, len(tsArray))
	for i, raw := range tsArray {
		if !raw.Exists() || raw.Type == gjson.Null || raw.String() == "" {
			continue
		}
		ts, err := h.parseTimestamp(raw)
		if err != nil {
			return &DataFrame{}, fmt.Errorf("parse timestamp[%d]: %w", i, err)
		}

		row := Row{timeCol: ts.UTC().Format(TimeLayout)}
		for j, f := range h.Fields {
			row[f.Column] = numberAt(fieldArrays[j], i)
		}
		rows = append(rows, stamped{ts: ts, row: row})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ts.Before(rows[j].ts)
	})

	df := &DataFrame{Columns: h.Columns(), Rows: make([]Row, len(rows))}
	for i, r := range rows {
		df.Rows[i] = r.row
	}
	return df, nil
}

func (h *HTTPAdapter) fetch(ctx context.Context) ([]byte, error) {
	now := time.Now().UTC()
	templateData := map[string]any{
		"Now":          now.Format(time.RFC3339),
		"NowUnix":      now.Unix(),
		"NowUnixMilli": now.UnixMilli(),
	}
	for k, v := range h.TemplateVars {
		templateData[k] = v
	}

	method := h.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if h.Body != "" {
		rendered, err := renderTemplate(h.Body, templateData)
		if err != nil {
			return nil, fmt.Errorf("render body template: %w", err)
		}
		bodyReader = bytes.NewBufferString(rendered)
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, method, h.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range h.Headers {
		rendered, err := renderTemplate(value, templateData)
		if err != nil {
			return nil, fmt.Errorf("render header %s: %w", key, err)
		}
		req.Header.Set(key, rendered)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(msg))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}
	return body, nil
}

// column resolves path to an array of results. A path of the form
// "list.#.key" is resolved element by element, so elements lacking key keep
// their index as a non-existent result instead of being dropped.
func column(body []byte, path string) ([]gjson.Result, bool) {
	if list, key, ok := strings.Cut(path, ".#."); ok {
		arr := gjson.GetBytes(body, list)
		if !arr.Exists() {
			return nil, false
		}
		elems := arr.Array()
		out := make([]gjson.Result, len(elems))
		for i, e := range elems {
			out[i] = e.Get(key)
		}
		return out, true
	}

	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Array(), true
}

// numberAt returns arr[i] as float64, or nil when absent or not numeric.
func numberAt(arr []gjson.Result, i int) any {
	if i >= len(arr) {
		return nil
	}
	v := arr[i]
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	default:
		return nil
	}
}

// parseTimestamp parses a timestamp according to the configured format.
func (h *HTTPAdapter) parseTimestamp(value gjson.Result) (time.Time, error) {
	format := h.TimestampFormat
	if format == "" {
		format = "rfc3339"
	}

	switch format {
	case "rfc3339":
		return time.Parse(time.RFC3339, value.String())

	case "unix":
		sec, frac := math.Modf(value.Float())
		return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), nil

	case "unix_milli":
		return time.UnixMilli(int64(math.Round(value.Float()))).UTC(), nil

	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", format)
	}
}

// renderTemplate renders a text template with the given data.
func renderTemplate(tmplStr string, data map[string]any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ValidateConfig checks if the adapter configuration is valid.
func (h *HTTPAdapter) ValidateConfig() error {
	if h.URL == "" {
		return errors.New("url is required")
	}
	if h.TimestampPath == "" {
		return errors.New("timestampPath is required")
	}
	if len(h.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := map[string]bool{h.timeColumn(): true}
	for i, f := range h.Fields {
		if f.Column == "" || f.Path == "" {
			return fmt.Errorf("field[%d]: column and path are required", i)
		}
		if seen[f.Column] {
			return fmt.Errorf("field[%d]: duplicate column %q", i, f.Column)
		}
		seen[f.Column] = true
	}

	switch h.TimestampFormat {
	case "", "rfc3339", "unix", "unix_milli":
	default:
		return fmt.Errorf("invalid timestampFormat: %s (must be rfc3339, unix, or unix_milli)", h.TimestampFormat)
	}

	return nil
}
