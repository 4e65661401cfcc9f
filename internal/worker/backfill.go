package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/dmi"
	"github.com/fangstlog/fangstlog/internal/geo"
	"github.com/fangstlog/fangstlog/internal/trip"
)

// ErrTooOld is returned by BackfillTrip for trips past the configured MaxAge.
var ErrTooOld = errors.New("trip is too old for weather backfill")

// TripStore is the part of the trip repository the backfill needs.
type TripStore interface {
	Get(ctx context.Context, userID, tripID string) (*trip.Trip, error)
	ListNeedingWeather(ctx context.Context, limit int) ([]*trip.Trip, error)
	UpdateWeather(ctx context.Context, tripID, metaJSON string) error
}

// Evaluator produces a weather evaluation for a trip window.
type Evaluator interface {
	Evaluate(ctx context.Context, in dmi.TripInput) (*dmi.Evaluation, error)
}

// BackfillJob fills in weather for trips that were stored without it.
type BackfillJob struct {
	config    BackfillConfig
	trips     TripStore
	evaluator Evaluator
	logger    zerolog.Logger
	now       func() time.Time

	metrics *BackfillMetrics
}

// BackfillMetrics tracks backfill job statistics.
type BackfillMetrics struct {
	mu sync.RWMutex

	Sweeps    int64
	Updated   int64
	NoData    int64
	Failed    int64
	Skipped   int64
	Requested int64

	LastSweepAt       time.Time
	LastSweepDuration time.Duration
	TotalDuration     time.Duration
}

// BackfillJobConfig holds configuration for creating a BackfillJob.
type BackfillJobConfig struct {
	Config    BackfillConfig
	Trips     TripStore
	Evaluator Evaluator
	Logger    zerolog.Logger
}

// NewBackfillJob creates a new backfill job.
func NewBackfillJob(cfg BackfillJobConfig) *BackfillJob {
	return &BackfillJob{
		config:    cfg.Config.withDefaults(),
		trips:     cfg.Trips,
		evaluator: cfg.Evaluator,
		logger:    cfg.Logger,
		now:       time.Now,
		metrics:   &BackfillMetrics{},
	}
}

// BackfillResult contains the result of one sweep.
type BackfillResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Total     int
	Updated   int
	NoData    int
	Failed    int
	Skipped   int
	Errors    []BackfillError
}

// BackfillError describes one trip that could not be backfilled.
type BackfillError struct {
	TripID string
	Error  string
}

type tripOutcome struct {
	tripID string
	noData bool
	err    error
}

// Run loads a batch of trips still flagged needs_dmi and evaluates them with
// bounded concurrency. Trips whose evaluation fails keep the flag and are
// picked up by a later sweep.
func (j *BackfillJob) Run(ctx context.Context) (*BackfillResult, error) {
	startTime := j.now()
	result := &BackfillResult{StartTime: startTime}

	pending, err := j.trips.ListNeedingWeather(ctx, j.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("listing trips needing weather: %w", err)
	}
	result.Total = len(pending)

	j.logger.Info().
		Int("trips", result.Total).
		Int("concurrency", j.config.Concurrency).
		Msg("starting weather backfill")

	tripsChan := make(chan *trip.Trip, len(pending))
	resultsChan := make(chan tripOutcome, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.backfillWorker(ctx, tripsChan, resultsChan)
		}()
	}

	for _, t := range pending {
		tripsChan <- t
	}
	close(tripsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for out := range resultsChan {
		switch {
		case errors.Is(out.err, ErrTooOld):
			result.Skipped++
		case out.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, BackfillError{TripID: out.tripID, Error: out.err.Error()})
		case out.noData:
			result.NoData++
		default:
			result.Updated++
		}
	}

	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("updated", result.Updated).
		Int("no_data", result.NoData).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("weather backfill completed")

	return result, nil
}

func (j *BackfillJob) backfillWorker(ctx context.Context, trips <-chan *trip.Trip, results chan<- tripOutcome) {
	for t := range trips {
		select {
		case <-ctx.Done():
			results <- tripOutcome{tripID: t.ID, err: ctx.Err()}
		default:
			noData, err := j.backfill(ctx, t)
			results <- tripOutcome{tripID: t.ID, noData: noData, err: err}
		}
	}
}

// BackfillTrip evaluates a single trip. A trip that already has weather is
// left alone.
func (j *BackfillJob) BackfillTrip(ctx context.Context, userID, tripID string) error {
	j.metrics.mu.Lock()
	j.metrics.Requested++
	j.metrics.mu.Unlock()

	t, err := j.trips.Get(ctx, userID, tripID)
	if err != nil {
		return fmt.Errorf("loading trip %s: %w", tripID, err)
	}
	if !t.NeedsDMI {
		j.logger.Debug().Str("trip_id", tripID).Msg("trip already has weather")
		return nil
	}

	noData, err := j.backfill(ctx, t)
	j.metrics.mu.Lock()
	switch {
	case errors.Is(err, ErrTooOld):
		j.metrics.Skipped++
	case err != nil:
		j.metrics.Failed++
	case noData:
		j.metrics.NoData++
	default:
		j.metrics.Updated++
	}
	j.metrics.mu.Unlock()
	return err
}

// backfill evaluates and stores weather for t. It reports whether the
// stored evaluation carries no data.
func (j *BackfillJob) backfill(ctx context.Context, t *trip.Trip) (bool, error) {
	if j.config.MaxAge > 0 && j.now().Sub(t.EndTS) > j.config.MaxAge {
		return false, ErrTooOld
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	ev, err := j.evaluator.Evaluate(ctx, tripInput(t))
	if err != nil {
		j.logger.Warn().Err(err).Str("trip_id", t.ID).Msg("weather evaluation failed")
		return false, err
	}

	meta, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("encoding evaluation: %w", err)
	}

	if err := j.trips.UpdateWeather(ctx, t.ID, string(meta)); err != nil {
		j.logger.Error().Err(err).Str("trip_id", t.ID).Msg("storing weather failed")
		return false, fmt.Errorf("updating trip %s: %w", t.ID, err)
	}

	j.logger.Debug().Str("trip_id", t.ID).Bool("no_data", ev.NoData).Msg("trip weather backfilled")
	return ev.NoData, nil
}

func tripInput(t *trip.Trip) dmi.TripInput {
	in := dmi.TripInput{
		Start: t.StartTS,
		End:   t.EndTS,
		Path:  geo.ParsePath(t.PathJSON),
	}
	if t.SpotLat != nil && t.SpotLng != nil {
		in.Spot = &geo.Point{Latitude: *t.SpotLat, Longitude: *t.SpotLng}
	}
	return in
}

func (j *BackfillJob) updateMetrics(result *BackfillResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.Sweeps++
	j.metrics.Updated += int64(result.Updated)
	j.metrics.NoData += int64(result.NoData)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.Skipped += int64(result.Skipped)
	j.metrics.LastSweepAt = result.EndTime
	j.metrics.LastSweepDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *BackfillJob) GetMetrics() BackfillMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return BackfillMetrics{
		Sweeps:            j.metrics.Sweeps,
		Updated:           j.metrics.Updated,
		NoData:            j.metrics.NoData,
		Failed:            j.metrics.Failed,
		Skipped:           j.metrics.Skipped,
		Requested:         j.metrics.Requested,
		LastSweepAt:       j.metrics.LastSweepAt,
		LastSweepDuration: j.metrics.LastSweepDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *BackfillJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"sweeps":              m.Sweeps,
		"updated":             m.Updated,
		"no_data":             m.NoData,
		"failed":              m.Failed,
		"skipped":             m.Skipped,
		"requested":           m.Requested,
		"last_sweep_at":       m.LastSweepAt,
		"last_sweep_duration": m.LastSweepDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}
