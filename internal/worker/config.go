// Package worker runs background weather backfill for stored trips.
package worker

import (
	"time"
)

// BackfillConfig holds configuration for the weather backfill job.
type BackfillConfig struct {
	// BatchSize is the maximum number of trips loaded per sweep.
	// Default: 100
	BatchSize int

	// Concurrency is the number of trips evaluated in parallel.
	// Default: 3
	Concurrency int

	// Timeout bounds the evaluation and update of a single trip.
	// Default: 45 seconds
	Timeout time.Duration

	// MaxAge skips trips that ended longer ago than this; DMI data for
	// them is not going to appear anymore. Zero disables the cutoff.
	// Default: 30 days
	MaxAge time.Duration
}

// DefaultBackfillConfig returns the default backfill configuration.
func DefaultBackfillConfig() BackfillConfig {
	return BackfillConfig{
		BatchSize:   100,
		Concurrency: 3,
		Timeout:     45 * time.Second,
		MaxAge:      30 * 24 * time.Hour,
	}
}

// withDefaults fills zero fields from DefaultBackfillConfig. MaxAge is kept
// as given so zero can disable it.
func (c BackfillConfig) withDefaults() BackfillConfig {
	d := DefaultBackfillConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}
