// Package geo provides distance and path utilities for recorded fishing trips.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// Path filtering thresholds.
const (
	// MinWaypointDistance is the shortest segment counted. Shorter segments are GPS jitter.
	MinWaypointDistance = 10.0

	// MaxWaypointDistance is the longest segment counted. Longer segments are GPS spikes.
	MaxWaypointDistance = 150.0

	// MaxWaypointSpeed is the highest implied speed (m/s, ~29 km/h) a segment may have.
	MaxWaypointSpeed = 8.0
)

// Point represents a geographic coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PathPoint is a single recorded trip sample.
// T is the sample time in epoch milliseconds, 0 when unknown.
type PathPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	T         int64   `json:"t,omitempty"`
}

// Point returns the coordinate of the sample.
func (p PathPoint) Point() Point {
	return Point{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Valid reports whether the coordinate is within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180 &&
		!math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude)
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// ComputeDistance sums the segment lengths of a recorded path in meters.
//
// Segments shorter than MinWaypointDistance are treated as jitter and skipped.
// Segments longer than MaxWaypointDistance, or whose implied speed exceeds
// MaxWaypointSpeed, are treated as spikes and skipped entirely (not capped).
// The speed check only applies when both samples carry a timestamp.
func ComputeDistance(points []PathPoint) float64 {
	if len(points) < 2 {
		return 0
	}

	total := 0.0
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		d := Haversine(prev.Point(), cur.Point())

		if d < MinWaypointDistance {
			continue
		}
		if d > MaxWaypointDistance {
			continue
		}
		if prev.T > 0 && cur.T > 0 {
			dt := float64(cur.T-prev.T) / 1000
			if dt > 0 && d/dt > MaxWaypointSpeed {
				continue
			}
		}

		total += d
	}

	return total
}

// Centroid returns the mean position of the given points.
// The second return value is false when points is empty.
func Centroid(points []PathPoint) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Latitude
		sumLon += p.Longitude
	}

	n := float64(len(points))
	return Point{Latitude: sumLat / n, Longitude: sumLon / n}, true
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
