// Package trip persists finished fishing trips and tags them with the
// user's nearest spot.
package trip

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors returned by the trip package.
var (
	ErrTripNotFound   = errors.New("trip not found")
	ErrInvalidPayload = errors.New("invalid trip payload")
)

// Trip is a stored fishing trip.
type Trip struct {
	ID             string
	UserID         string
	StartTS        time.Time
	EndTS          time.Time
	DurationSec    int64
	DistanceM      float64
	PathJSON       string
	Polyline       string
	FishCount      int
	FishEventsJSON string
	MetaJSON       string
	NeedsDMI       bool
	SpotID         string
	SpotName       string
	SpotLat        *float64
	SpotLng        *float64
	AutoTagged     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GetFishEventsCount returns the number of recorded fish events.
// A valid fish_events_json array wins over a possibly stale fish_count.
func GetFishEventsCount(t *Trip) int {
	if t == nil {
		return 0
	}
	return FishEventsCount(t.FishEventsJSON, t.FishCount)
}

// FishEventsCount counts the entries of a fish events JSON array, falling
// back to fallback when the JSON is empty, null or not an array.
func FishEventsCount(eventsJSON string, fallback int) int {
	if eventsJSON == "" {
		return fallback
	}
	var events []json.RawMessage
	if err := json.Unmarshal([]byte(eventsJSON), &events); err != nil || events == nil {
		return fallback
	}
	return len(events)
}

// WeatherDegraded reports whether meta_json is the note a device writes when
// it gave up fetching weather for a trip.
func WeatherDegraded(metaJSON string) bool {
	if metaJSON == "" {
		return false
	}
	var meta struct {
		DMIUnavailable bool `json:"dmi_unavailable"`
	}
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return false
	}
	return meta.DMIUnavailable
}
