// Package spot manages named per-user fishing locations.
package spot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fangstlog/fangstlog/internal/geo"
)

// Repository errors.
var (
	ErrSpotNotFound = errors.New("spot not found")
	ErrInvalidSpot  = errors.New("invalid spot")
)

// MaxNameLength bounds spot names.
const MaxNameLength = 80

// Spot is a named fishing location.
type Spot struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	CreatedAt time.Time `json:"created_at"`
}

// Point returns the spot position.
func (s *Spot) Point() geo.Point {
	return geo.Point{Latitude: s.Lat, Longitude: s.Lng}
}

// Validate checks the spot has a name and a position within WGS84 bounds.
func (s *Spot) Validate() error {
	name := strings.TrimSpace(s.Name)
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidSpot)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: name must be at most 80 characters", ErrInvalidSpot)
	case !s.Point().Valid():
		return fmt.Errorf("%w: position is out of range", ErrInvalidSpot)
	}
	return nil
}

// rawSpot accepts every coordinate spelling found in stored spot documents.
type rawSpot struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Lat       *float64   `json:"lat"`
	Latitude  *float64   `json:"latitude"`
	Lng       *float64   `json:"lng"`
	Lon       *float64   `json:"lon"`
	Longitude *float64   `json:"longitude"`
	CreatedAt *time.Time `json:"created_at"`
}

// UnmarshalJSON normalizes lat/latitude and lng/lon/longitude into Lat and Lng.
// A spot missing either coordinate is rejected with ErrInvalidSpot.
func (s *Spot) UnmarshalJSON(data []byte) error {
	var raw rawSpot
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	lat := firstSet(raw.Lat, raw.Latitude)
	lng := firstSet(raw.Lng, raw.Lon, raw.Longitude)
	if lat == nil || lng == nil {
		return fmt.Errorf("%w: missing coordinates", ErrInvalidSpot)
	}

	*s = Spot{
		ID:   raw.ID,
		Name: strings.TrimSpace(raw.Name),
		Lat:  *lat,
		Lng:  *lng,
	}
	if raw.CreatedAt != nil {
		s.CreatedAt = *raw.CreatedAt
	}
	return nil
}

func firstSet(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// Nearest returns the spot closest to p within maxMeters.
// Ties keep the first spot in list order.
func Nearest(spots []*Spot, p geo.Point, maxMeters float64) (*Spot, float64, bool) {
	var (
		best     *Spot
		bestDist float64
	)
	for _, s := range spots {
		d := geo.Haversine(p, s.Point())
		if d > maxMeters {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, bestDist, best != nil
}
