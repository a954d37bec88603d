package adapters

import (
	"encoding/json"
	"fmt"
	"maps"
)

// ERCOT ancillary-services dashboard endpoint and referring page.
const (
	ERCOTURL     = "https://www.ercot.com/api/1/services/read/dashboards/ancillary-services.json"
	ERCOTReferer = "https://www.ercot.com/gridmktinfo/dashboards/ancillaryservices"
)

// ERCOTFields maps the dashboard payload onto the snapshot columns.
var ERCOTFields = []Field{
	{Column: "REG-UP-Deployed", Path: "ascapmon.#.deployedRegUp"},
	{Column: "REG-UP-Undeployed", Path: "ascapmon.#.undeployedRegUp"},
	{Column: "REG-DOWN-Deployed", Path: "ascapmon.#.deployedRegDown"},
	{Column: "REG-DOWN-Undeployed", Path: "ascapmon.#.undeployedRegDown"},
	{Column: "RRS", Path: "ascapmon.#.rrs"},
	{Column: "NON-SPIN", Path: "ascapmon.#.nsrs"},
	{Column: "ECRS", Path: "ascapmon.#.ecrs"},
	{Column: "Frequency", Path: "data.#.currentFrequency"},
}

// ercotHeaders mimic the dashboard's own XHR; the endpoint rejects bare
// clients.
var ercotHeaders = map[string]string{
	"Accept":           "*/*",
	"Accept-Language":  "en-US,en;q=0.9",
	"Cache-Control":    "no-cache",
	"Pragma":           "no-cache",
	"Referer":          ERCOTReferer,
	"Sec-Fetch-Dest":   "empty",
	"Sec-Fetch-Mode":   "cors",
	"Sec-Fetch-Site":   "same-origin",
	"User-Agent":       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"X-Requested-With": "XMLHttpRequest",
}

// New creates an adapter based on kind and generic configuration map.
//
// Supported kinds:
//   - "ercot": ERCOT ancillary-services dashboard preset
//   - "http": generic HTTP adapter, fully described by config
//
// Returns error if kind is unknown or required fields are missing.
func New(kind string, config map[string]string) (Adapter, error) {
	switch kind {
	case "ercot":
		return newERCOT(config)
	case "http":
		return newHTTP(config)
	default:
		return nil, fmt.Errorf("unknown adapter kind: %s (must be ercot or http)", kind)
	}
}

// NewERCOT returns the dashboard preset with default settings.
func NewERCOT() *HTTPAdapter {
	return &HTTPAdapter{
		Source:          "ercot",
		URL:             ERCOTURL,
		Method:          "GET",
		Headers:         maps.Clone(ercotHeaders),
		TimeColumn:      "Time",
		TimestampPath:   "ascapmon.#.tagcLastTime",
		TimestampFormat: "unix_milli",
		Fields:          append([]Field(nil), ERCOTFields...),
	}
}

// newERCOT applies optional overrides ("url", "headers") to the preset.
func newERCOT(config map[string]string) (Adapter, error) {
	a := NewERCOT()

	if url := config["url"]; url != "" {
		a.URL = url
	}

	if headersJSON := config["headers"]; headersJSON != "" {
		var extra map[string]string
		if err := json.Unmarshal([]byte(headersJSON), &extra); err != nil {
			return nil, fmt.Errorf("invalid 'headers' JSON: %w", err)
		}
		maps.Copy(a.Headers, extra)
	}

	return a, nil
}

// newHTTP creates a generic HTTP adapter from generic config.
func newHTTP(config map[string]string) (Adapter, error) {
	url := config["url"]
	if url == "" {
		return nil, fmt.Errorf("http adapter requires 'url' config")
	}

	timestampPath := config["timestampPath"]
	if timestampPath == "" {
		return nil, fmt.Errorf("http adapter requires 'timestampPath' config")
	}

	fieldsJSON := config["fields"]
	if fieldsJSON == "" {
		return nil, fmt.Errorf("http adapter requires 'fields' config")
	}
	var fields []Field
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return nil, fmt.Errorf("invalid 'fields' JSON: %w", err)
	}

	method := config["method"]
	if method == "" {
		method = "GET"
	}

	timestampFormat := config["timestampFormat"]
	if timestampFormat == "" {
		timestampFormat = "rfc3339"
	}

	var headers map[string]string
	if headersJSON := config["headers"]; headersJSON != "" {
		if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
			return nil, fmt.Errorf("invalid 'headers' JSON: %w", err)
		}
	}

	var templateVars map[string]string
	if varsJSON := config["templateVars"]; varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &templateVars); err != nil {
			return nil, fmt.Errorf("invalid 'templateVars' JSON: %w", err)
		}
	}

	a := &HTTPAdapter{
		Source:          config["name"],
		URL:             url,
		Method:          method,
		Headers:         headers,
		Body:            config["body"],
		TimeColumn:      config["timeColumn"],
		TimestampPath:   timestampPath,
		TimestampFormat: timestampFormat,
		Fields:          fields,
		TemplateVars:    templateVars,
	}
	if err := a.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("http adapter: %w", err)
	}
	return a, nil
}
