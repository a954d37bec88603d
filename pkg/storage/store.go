// Package storage keeps the most recent polled snapshot per source so the
// poller can serve it over HTTP without rereading spreadsheets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/HatiCode/gridsnap/pkg/adapters"
)

// Snapshot is one successful poll.
type Snapshot struct {
	// Source is the adapter name, e.g. "ercot".
	Source string `json:"source"`

	// File is the base name of the spreadsheet the poll was written to.
	File string `json:"file"`

	// CapturedAt is when the poll completed.
	CapturedAt time.Time `json:"capturedAt"`

	Columns []string       `json:"columns"`
	Rows    []adapters.Row `json:"rows"`
}

// ErrExpired is returned by Put for a snapshot already older than the
// store's TTL.
var ErrExpired = errors.New("snapshot already expired")

// Store keeps the latest snapshot per source. Stores with a TTL measure it
// from CapturedAt, and GetLatest never returns an expired snapshot.
type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, source string) (Snapshot, bool, error)
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Validate checks that s describes a written poll: a safe source, the base
// name of its file, a capture time, and rows that all carry the time column
// (Columns[0]).
func (s Snapshot) Validate() error {
	if err := ValidateSource(s.Source); err != nil {
		return err
	}
	if s.File == "" || s.File != filepath.Base(s.File) {
		return fmt.Errorf("snapshot file %q must be a base name", s.File)
	}
	if s.CapturedAt.IsZero() {
		return fmt.Errorf("snapshot %s has no capture time", s.File)
	}
	if len(s.Columns) == 0 || len(s.Rows) == 0 {
		return fmt.Errorf("snapshot %s holds no rows", s.File)
	}

	timeCol := s.Columns[0]
	for i, row := range s.Rows {
		if row[timeCol] == nil {
			return fmt.Errorf("snapshot %s: row %d has no %q value", s.File, i, timeCol)
		}
	}
	return nil
}

// expired reports whether s is older than ttl at now. A zero ttl never expires.
func (s Snapshot) expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(s.CapturedAt) > ttl
}

// ValidateSource rejects names that are unsafe as storage keys.
func ValidateSource(source string) error {
	if source == "" {
		return fmt.Errorf("snapshot source cannot be empty")
	}
	for _, c := range source {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_') {
			return fmt.Errorf("invalid source name %q: only alphanumeric, hyphens, and underscores allowed", source)
		}
	}
	return nil
}
