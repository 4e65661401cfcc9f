// Package station holds the static DMI observation station lists and
// nearest-station resolution.
package station

import (
	"sort"

	"github.com/fangstlog/fangstlog/internal/geo"
)

// MaxOceanDistanceKm bounds the fallback search for ocean stations.
const MaxOceanDistanceKm = 80.0

// Station is an immutable DMI observation station.
type Station struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Coastal bool    `json:"coastal,omitempty"`

	// HasTemp is set for ocean stations reporting water temperature ("tw").
	HasTemp bool `json:"has_temp,omitempty"`

	// HasLevel is set for ocean stations reporting sea level ("sealev_dvr").
	HasLevel bool `json:"has_level,omitempty"`
}

// Point returns the station position.
func (s Station) Point() geo.Point {
	return geo.Point{Latitude: s.Lat, Longitude: s.Lon}
}

// Candidate pairs a station with its distance from a query point.
type Candidate struct {
	Station    Station
	DistanceKm float64
}

// Filter selects stations during resolution. A nil Filter accepts all.
type Filter func(Station) bool

// Nearest returns the station closest to (lat, lon).
// Ties keep the first station in list order.
func Nearest(list []Station, lat, lon float64, filter Filter) (Candidate, bool) {
	origin := geo.Point{Latitude: lat, Longitude: lon}

	var best Candidate
	found := false
	for _, s := range list {
		if filter != nil && !filter(s) {
			continue
		}
		d := geo.Haversine(origin, s.Point()) / 1000
		if !found || d < best.DistanceKm {
			best = Candidate{Station: s, DistanceKm: d}
			found = true
		}
	}
	return best, found
}

// Candidates returns all matching stations within maxKm, nearest first.
// Equal distances keep list order.
func Candidates(list []Station, lat, lon, maxKm float64, filter Filter) []Candidate {
	origin := geo.Point{Latitude: lat, Longitude: lon}

	var out []Candidate
	for _, s := range list {
		if filter != nil && !filter(s) {
			continue
		}
		d := geo.Haversine(origin, s.Point()) / 1000
		if d <= maxKm {
			out = append(out, Candidate{Station: s, DistanceKm: d})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

// NearestClimate returns the closest climate station. With coastalOnly the
// search is restricted to coastal stations, widening to all stations when no
// coastal one exists.
func NearestClimate(lat, lon float64, coastalOnly bool) (Candidate, bool) {
	if coastalOnly {
		if c, ok := Nearest(ClimateStations, lat, lon, IsCoastal); ok {
			return c, true
		}
	}
	return Nearest(ClimateStations, lat, lon, nil)
}

// NearestMetObs returns the closest metObs station.
func NearestMetObs(lat, lon float64) (Candidate, bool) {
	return Nearest(MetObsStations, lat, lon, nil)
}

// OceanTempCandidates returns ocean stations measuring water temperature
// within MaxOceanDistanceKm, nearest first.
func OceanTempCandidates(lat, lon float64) []Candidate {
	return Candidates(OceanStations, lat, lon, MaxOceanDistanceKm, HasWaterTemp)
}

// NearestOceanLevel returns the closest sea level station within MaxOceanDistanceKm.
func NearestOceanLevel(lat, lon float64) (Candidate, bool) {
	c, ok := Nearest(OceanStations, lat, lon, HasSeaLevel)
	if !ok || c.DistanceKm > MaxOceanDistanceKm {
		return Candidate{}, false
	}
	return c, true
}

// IsCoastal accepts coastal stations.
func IsCoastal(s Station) bool { return s.Coastal }

// HasWaterTemp accepts stations reporting water temperature.
func HasWaterTemp(s Station) bool { return s.HasTemp }

// HasSeaLevel accepts stations reporting sea level.
func HasSeaLevel(s Station) bool { return s.HasLevel }
