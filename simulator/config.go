package main

import (
	"errors"
	"fmt"
	"time"
)

// Config holds parameters for the simulated solver.
type Config struct {
	Dir         string
	First       int
	Last        int
	Branches    int
	Outages     int
	MissingRate float64
	FailRate    float64
	Seed        int64
	Delay       time.Duration
	Verbose     bool
}

// Validate checks the variant range and the rates.
func (c Config) Validate() error {
	if c.First < 0 || c.Last < c.First {
		return fmt.Errorf("invalid variant range [%d, %d]", c.First, c.Last)
	}
	if c.Branches < 1 {
		return errors.New("at least one branch is required")
	}
	if c.Outages < 0 {
		return errors.New("outages must not be negative")
	}
	for name, r := range map[string]float64{"missing-rate": c.MissingRate, "fail-rate": c.FailRate} {
		if r < 0 || r > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %g", name, r)
		}
	}
	return nil
}
