package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/gridsim/core/timeseries"
	"github.com/kilianp07/gridsim/core/variant"
)

// TimeIndexConfig describes the regular time axis the variants map to.
type TimeIndexConfig struct {
	// Start is an RFC 3339 instant.
	Start          string `json:"start"`
	SpacingSeconds int    `json:"spacing_seconds"`
	Count          int    `json:"count"`
}

// RunConfig selects the versions and variants of a batch run.
type RunConfig struct {
	Versions   []int           `json:"versions"`
	Ranges     []variant.Range `json:"ranges"`
	RangesFile string          `json:"ranges_file"`
	ChunkSize  int             `json:"chunk_size"`
	TimeIndex  TimeIndexConfig `json:"time_index"`
}

// SetDefaults runs version 1 when no version is listed.
func (c *RunConfig) SetDefaults() {
	if len(c.Versions) == 0 {
		c.Versions = []int{1}
	}
}

// Validate checks the static fields; ranges are checked by Plan.
func (c RunConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d: %w", c.ChunkSize, variant.ErrInvalidChunkSize)
	}
	if len(c.Ranges) == 0 && c.RangesFile == "" {
		return errors.New("ranges or ranges_file is required")
	}
	seen := make(map[int]bool, len(c.Versions))
	for _, v := range c.Versions {
		if seen[v] {
			return fmt.Errorf("version %d listed twice", v)
		}
		seen[v] = true
	}
	for _, r := range c.Ranges {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Plan loads the ranges file, if any, after the inline ranges and builds
// the chunk plan.
func (c RunConfig) Plan() (*variant.Plan, error) {
	ranges := append([]variant.Range(nil), c.Ranges...)
	if c.RangesFile != "" {
		fromFile, err := variant.LoadRanges(c.RangesFile)
		if err != nil {
			return nil, fmt.Errorf("load ranges file: %w", err)
		}
		ranges = append(ranges, fromFile...)
	}
	return variant.NewPlan(ranges, c.ChunkSize)
}

// Index returns the time index of the run, nil when none is configured.
func (c RunConfig) Index() (timeseries.Index, error) {
	ti := c.TimeIndex
	if ti.Start == "" && ti.Count == 0 && ti.SpacingSeconds == 0 {
		return nil, nil
	}
	start, err := time.Parse(time.RFC3339, ti.Start)
	if err != nil {
		return nil, fmt.Errorf("time_index.start: %w", err)
	}
	return timeseries.NewRegularIndex(start, time.Duration(ti.SpacingSeconds)*time.Second, ti.Count)
}
