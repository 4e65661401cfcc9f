package dmi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fangstlog/fangstlog/internal/geo"
	"github.com/fangstlog/fangstlog/internal/station"
)

// TripInput is the part of a trip the evaluator needs.
type TripInput struct {
	Start time.Time
	End   time.Time
	Path  []geo.PathPoint

	// Spot is the manually selected fishing spot. It takes precedence over the path.
	Spot *geo.Point
}

// Location returns where the trip took place: the manual spot, else the path centroid.
func (t TripInput) Location() (geo.Point, bool) {
	if t.Spot != nil && t.Spot.Valid() {
		return *t.Spot, true
	}
	return geo.Centroid(t.Path)
}

// StationRef identifies the station a statistic came from.
type StationRef struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
}

// StationsUsed lists the stations an evaluation drew on.
type StationsUsed struct {
	Climate    *StationRef `json:"climate,omitempty"`
	MetObs     *StationRef `json:"metobs,omitempty"`
	WaterTemp  *StationRef `json:"water_temp,omitempty"`
	WaterLevel *StationRef `json:"water_level,omitempty"`
}

// Evaluation is the weather summary stored with a trip.
type Evaluation struct {
	Source      string           `json:"source"`
	EvaluatedAt time.Time        `json:"evaluated_at"`
	Location    *geo.Point       `json:"location,omitempty"`
	WindowStart time.Time        `json:"window_start"`
	WindowEnd   time.Time        `json:"window_end"`
	ShortTrip   bool             `json:"short_trip,omitempty"`
	Stations    StationsUsed     `json:"stations"`
	AirTemp     *Stat            `json:"air_temp,omitempty"`
	WindSpeed   *Stat            `json:"wind_speed,omitempty"`
	WindDir     *Stat            `json:"wind_dir,omitempty"`
	Pressure    *Stat            `json:"pressure,omitempty"`
	WaterTemp   *Stat            `json:"water_temp,omitempty"`
	WaterLevel  *Stat            `json:"water_level,omitempty"`
	Series      map[string]Serie `json:"series,omitempty"`
	NoData      bool             `json:"no_data,omitempty"`
	Note        string           `json:"note,omitempty"`
}

// HasAny reports whether any statistic or chart serie is non-empty.
func (e *Evaluation) HasAny() bool {
	if e == nil {
		return false
	}
	for _, s := range []*Stat{e.AirTemp, e.WindSpeed, e.WindDir, e.Pressure, e.WaterTemp, e.WaterLevel} {
		if s != nil {
			return true
		}
	}
	for _, s := range e.Series {
		if len(s) > 0 {
			return true
		}
	}
	return false
}

// EvaluatorConfig holds configuration for the evaluator.
type EvaluatorConfig struct {
	Fetcher Fetcher

	// Concurrency bounds parallel fetches per evaluation (default 4).
	Concurrency int

	// CoastalClimate restricts climate stations to coastal ones when any exist.
	CoastalClimate bool

	Logger zerolog.Logger
}

// Evaluator resolves stations for a trip and aggregates their observations.
type Evaluator struct {
	fetcher        Fetcher
	concurrency    int
	coastalClimate bool
	logger         zerolog.Logger
	now            func() time.Time
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Evaluator{
		fetcher:        cfg.Fetcher,
		concurrency:    concurrency,
		coastalClimate: cfg.CoastalClimate,
		logger:         cfg.Logger,
		now:            time.Now,
	}
}

// fetchResult is written by exactly one goroutine.
type fetchResult struct {
	serie   Serie
	station *StationRef
	err     error
}

// Evaluate fetches and aggregates weather for a trip.
//
// Individual fetch failures never abort the evaluation. When nothing at all
// was found, the result depends on why: if any fetch failed the call returns
// ErrEvaluationFailed, otherwise it returns an Evaluation with NoData set.
func (e *Evaluator) Evaluate(ctx context.Context, in TripInput) (*Evaluation, error) {
	w, err := NewWindow(in.Start, in.End)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{
		Source:      "dmi",
		EvaluatedAt: e.now().UTC(),
		WindowStart: w.QueryStart(),
		WindowEnd:   w.QueryEnd(),
		ShortTrip:   w.Short,
	}

	loc, ok := in.Location()
	if !ok {
		eval.NoData = true
		eval.Note = "Trip has no position; weather was not looked up."
		return eval, nil
	}
	eval.Location = &loc

	var (
		airTemp, windSpeed, pressure fetchResult
		windDir                      fetchResult
		waterTemp, waterLevel        fetchResult
	)

	// Fetch errors stay in their fetchResult; siblings are never cancelled.
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	if c, ok := station.NearestClimate(loc.Latitude, loc.Longitude, e.coastalClimate); ok {
		ref := toRef(c)
		for _, job := range []struct {
			param string
			out   *fetchResult
		}{
			{ParamAirTemp, &airTemp},
			{ParamWindSpeed, &windSpeed},
			{ParamPressure, &pressure},
		} {
			g.Go(func() error {
				s, err := e.fetcher.Climate(ctx, c.Station.ID, job.param, w)
				*job.out = fetchResult{serie: s, station: ref, err: err}
				return nil
			})
		}
	}

	if c, ok := station.NearestMetObs(loc.Latitude, loc.Longitude); ok {
		g.Go(func() error {
			s, err := e.fetcher.MetObs(ctx, c.Station.ID, ParamWindDir, w)
			windDir = fetchResult{serie: s, station: toRef(c), err: err}
			return nil
		})
	}

	if candidates := station.OceanTempCandidates(loc.Latitude, loc.Longitude); len(candidates) > 0 {
		g.Go(func() error {
			waterTemp = e.fetchFirstWithData(ctx, candidates, ParamWaterTemp, w)
			return nil
		})
	}

	if c, ok := station.NearestOceanLevel(loc.Latitude, loc.Longitude); ok {
		g.Go(func() error {
			s, err := e.fetcher.Ocean(ctx, c.Station.ID, ParamWaterLevel, w)
			waterLevel = fetchResult{serie: s, station: toRef(c), err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	eval.AirTemp = w.Stat(airTemp.serie)
	eval.WindSpeed = w.Stat(windSpeed.serie)
	eval.Pressure = w.Stat(pressure.serie)
	eval.WindDir = w.DirectionStat(windDir.serie)
	eval.WaterTemp = w.Stat(waterTemp.serie)
	eval.WaterLevel = w.Stat(waterLevel.serie)

	eval.Series = make(map[string]Serie)
	for name, r := range map[string]fetchResult{
		ParamAirTemp:    airTemp,
		ParamWindSpeed:  windSpeed,
		ParamPressure:   pressure,
		ParamWindDir:    windDir,
		ParamWaterTemp:  waterTemp,
		ParamWaterLevel: waterLevel,
	} {
		if len(r.serie) > 0 {
			eval.Series[name] = r.serie
		}
	}

	eval.Stations.Climate = firstRef(airTemp, windSpeed, pressure)
	if len(windDir.serie) > 0 {
		eval.Stations.MetObs = windDir.station
	}
	if len(waterTemp.serie) > 0 {
		eval.Stations.WaterTemp = waterTemp.station
	}
	if len(waterLevel.serie) > 0 {
		eval.Stations.WaterLevel = waterLevel.station
	}

	if eval.HasAny() {
		return eval, nil
	}

	failure := errors.Join(airTemp.err, windSpeed.err, pressure.err, windDir.err, waterTemp.err, waterLevel.err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		failure = errors.Join(failure, ctxErr)
	}
	if failure != nil {
		e.logger.Warn().Err(failure).
			Float64("lat", loc.Latitude).
			Float64("lon", loc.Longitude).
			Msg("weather evaluation found no data and had failed fetches")
		return nil, fmt.Errorf("%w: %w", ErrEvaluationFailed, failure)
	}

	eval.NoData = true
	eval.Series = nil
	eval.Note = "DMI has no observations near this trip for its time window."
	return eval, nil
}

// fetchFirstWithData tries candidates nearest first and returns the first
// non-empty serie. Failed candidates are skipped; the last error is kept
// only when no candidate produced data.
func (e *Evaluator) fetchFirstWithData(ctx context.Context, candidates []station.Candidate, param string, w Window) fetchResult {
	var lastErr error
	for _, c := range candidates {
		if ctx.Err() != nil {
			return fetchResult{err: ctx.Err()}
		}
		s, err := e.fetcher.Ocean(ctx, c.Station.ID, param, w)
		if err != nil {
			lastErr = err
			continue
		}
		if len(w.Select(s)) > 0 {
			return fetchResult{serie: s, station: toRef(c)}
		}
		e.logger.Debug().
			Str("station_id", c.Station.ID).
			Str("parameter_id", param).
			Msg("no observations, trying next station")
	}
	return fetchResult{err: lastErr}
}

func toRef(c station.Candidate) *StationRef {
	return &StationRef{ID: c.Station.ID, Name: c.Station.Name, DistanceKm: c.DistanceKm}
}

func firstRef(results ...fetchResult) *StationRef {
	for _, r := range results {
		if len(r.serie) > 0 {
			return r.station
		}
	}
	return nil
}
