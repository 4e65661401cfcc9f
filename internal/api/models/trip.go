package models

import "time"

// Trip is a stored fishing trip.
type Trip struct {
	ID             string    `json:"id"`
	StartTS        time.Time `json:"start_ts"`
	EndTS          time.Time `json:"end_ts"`
	DurationSec    int64     `json:"duration_sec"`
	DistanceM      float64   `json:"distance_m"`
	Polyline       string    `json:"polyline,omitempty"`
	PathJSON       string    `json:"path_json,omitempty"`
	FishCount      int       `json:"fish_count"`
	FishEventsJSON string    `json:"fish_events_json,omitempty"`
	MetaJSON       string    `json:"meta_json,omitempty"`
	NeedsDMI       bool      `json:"needs_dmi"`
	Spot           *TripSpot `json:"spot,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TripSpot is the spot a trip is linked to.
type TripSpot struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	AutoTagged bool     `json:"auto_tagged"`
}

// TripList is a page of trips. Paths are omitted; fetch a single trip for it.
type TripList struct {
	Items []Trip            `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// Spot is a named fishing location.
type Spot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	CreatedAt time.Time `json:"created_at"`
}

// SpotList is the user's spots.
type SpotList struct {
	Items []Spot `json:"items"`
}
