package trip

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/fangstlog/fangstlog/internal/geo"
)

// SaveTripPayload is the document a client submits for a finished trip.
// It is also what the offline queue persists while a trip waits for sync.
type SaveTripPayload struct {
	StartTS        string   `json:"start_ts"`
	EndTS          string   `json:"end_ts"`
	DurationSec    int64    `json:"duration_sec"`
	DistanceM      float64  `json:"distance_m"`
	PathJSON       string   `json:"path_json"`
	FishCount      int      `json:"fish_count"`
	FishEventsJSON string   `json:"fish_events_json,omitempty"`
	MetaJSON       string   `json:"meta_json,omitempty"`
	NeedsDMI       bool     `json:"needs_dmi"`
	SpotID         string   `json:"spot_id,omitempty"`
	SpotName       string   `json:"spot_name,omitempty"`
	SpotLat        *float64 `json:"spot_lat,omitempty"`
	SpotLng        *float64 `json:"spot_lng,omitempty"`
}

// NewPayload builds a payload from a recorded trip, deriving duration,
// filtered distance and fish count.
func NewPayload(start, end time.Time, path []geo.PathPoint, fishEvents []time.Time) (SaveTripPayload, error) {
	pathJSON, err := geo.EncodePath(path)
	if err != nil {
		return SaveTripPayload{}, fmt.Errorf("encoding path: %w", err)
	}

	events := make([]string, len(fishEvents))
	for i, t := range fishEvents {
		events[i] = t.UTC().Format(time.RFC3339)
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return SaveTripPayload{}, fmt.Errorf("encoding fish events: %w", err)
	}

	p := SaveTripPayload{
		StartTS:        start.UTC().Format(time.RFC3339),
		EndTS:          end.UTC().Format(time.RFC3339),
		DurationSec:    int64(math.Round(end.Sub(start).Seconds())),
		DistanceM:      geo.ComputeDistance(path),
		PathJSON:       pathJSON,
		FishCount:      len(fishEvents),
		FishEventsJSON: string(eventsJSON),
		NeedsDMI:       true,
	}
	return p, p.Validate()
}

// Validate checks the payload is complete enough to store.
func (p SaveTripPayload) Validate() error {
	start, end, err := p.Window()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end_ts is before start_ts", ErrInvalidPayload)
	}
	if p.DurationSec < 0 {
		return fmt.Errorf("%w: duration_sec must not be negative", ErrInvalidPayload)
	}
	if p.DistanceM < 0 || math.IsNaN(p.DistanceM) {
		return fmt.Errorf("%w: distance_m must not be negative", ErrInvalidPayload)
	}
	if p.FishCount < 0 {
		return fmt.Errorf("%w: fish_count must not be negative", ErrInvalidPayload)
	}
	if (p.SpotLat == nil) != (p.SpotLng == nil) {
		return fmt.Errorf("%w: spot_lat and spot_lng must be set together", ErrInvalidPayload)
	}
	if sp := p.Spot(); sp != nil && !sp.Valid() {
		return fmt.Errorf("%w: spot position is out of range", ErrInvalidPayload)
	}
	return nil
}

// Window parses the start and end timestamps.
func (p SaveTripPayload) Window() (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339Nano, p.StartTS)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_ts: %v", ErrInvalidPayload, err)
	}
	end, err := time.Parse(time.RFC3339Nano, p.EndTS)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_ts: %v", ErrInvalidPayload, err)
	}
	return start, end, nil
}

// Spot returns the manually chosen spot position, if any.
func (p SaveTripPayload) Spot() *geo.Point {
	if p.SpotLat == nil || p.SpotLng == nil {
		return nil
	}
	return &geo.Point{Latitude: *p.SpotLat, Longitude: *p.SpotLng}
}

// Path decodes the recorded path. Malformed samples are dropped.
func (p SaveTripPayload) Path() []geo.PathPoint {
	return geo.ParsePath(p.PathJSON)
}

// Location is where weather and spot lookups are made: the manual spot,
// else the centroid of the path.
func (p SaveTripPayload) Location() (geo.Point, bool) {
	if sp := p.Spot(); sp != nil && sp.Valid() {
		return *sp, true
	}
	return geo.Centroid(p.Path())
}
