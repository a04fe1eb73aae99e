// Package runlog persists one Record per finished chunk task so that a run
// can be audited after the fact: which chunks failed, how many variants
// were missing and how long each chunk took.
package runlog

import (
	"context"
	"fmt"
	"time"
)

// Record captures the outcome of one chunk of one version.
type Record struct {
	RunID      string    `json:"run_id"`
	Version    int       `json:"version"`
	Chunk      int       `json:"chunk"`
	First      int       `json:"first"`
	Last       int       `json:"last"`
	Outcome    string    `json:"outcome"`
	Decoded    int       `json:"decoded"`
	Missing    int       `json:"missing"`
	Invalid    int       `json:"invalid"`
	Values     int       `json:"values"`
	Series     int       `json:"series"`
	Artifacts  []string  `json:"artifacts,omitempty"`
	Error      string    `json:"error,omitempty"`
	Started    time.Time `json:"started"`
	DurationMS int64     `json:"duration_ms"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	RunID   string
	Version *int
	Outcome string
	Since   time.Time
	Limit   int
}

func (q Query) match(r Record) bool {
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Version != nil && r.Version != *q.Version {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	if !q.Since.IsZero() && r.Started.Before(q.Since) {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and configures the store backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills unset rotation settings.
func (c *Config) SetDefaults() {
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 30
	}
}

// Validate checks the backend name. An empty backend disables the run log.
func (c Config) Validate() error {
	switch c.Backend {
	case "":
		return nil
	case "jsonl", "rotating", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("runlog.path is required for backend %q", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown runlog backend %q", c.Backend)
	}
}

// Open builds the configured store. It returns a NopStore when disabled.
func Open(c Config) (Store, error) {
	switch c.Backend {
	case "":
		return NopStore{}, nil
	case "jsonl":
		return NewJSONLStore(c.Path)
	case "rotating":
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	default:
		return nil, fmt.Errorf("unknown runlog backend %q", c.Backend)
	}
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

func limit(recs []Record, n int) []Record {
	if n > 0 && len(recs) > n {
		return recs[:n]
	}
	return recs
}
