package geo

import "math"

// polylinePrecision is the fixed-point factor of the encoded polyline format (5 decimals).
const polylinePrecision = 1e5

// EncodePolyline encodes points with the Google polyline algorithm.
// Trips store the encoded path as a compact map preview.
func EncodePolyline(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(points)*6)
	var prevLat, prevLon int
	for _, p := range points {
		lat := int(math.Round(p.Latitude * polylinePrecision))
		lon := int(math.Round(p.Longitude * polylinePrecision))
		buf = appendPolylineValue(buf, lat-prevLat)
		buf = appendPolylineValue(buf, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return string(buf)
}

// DecodePolyline decodes a Google polyline string. A truncated trailing
// coordinate is dropped.
func DecodePolyline(encoded string) []Point {
	if encoded == "" {
		return nil
	}

	var points []Point
	var lat, lon int
	i := 0
	for i < len(encoded) {
		dLat, next, ok := readPolylineValue(encoded, i)
		if !ok {
			break
		}
		dLon, next, ok := readPolylineValue(encoded, next)
		if !ok {
			break
		}
		i = next

		lat += dLat
		lon += dLon
		points = append(points, Point{
			Latitude:  float64(lat) / polylinePrecision,
			Longitude: float64(lon) / polylinePrecision,
		})
	}
	return points
}

// PreviewPoints reduces a recorded path to at most limit evenly spaced points,
// always keeping the first and last sample.
func PreviewPoints(path []PathPoint, limit int) []Point {
	if len(path) == 0 {
		return nil
	}
	if limit < 2 || len(path) <= limit {
		out := make([]Point, len(path))
		for i, p := range path {
			out[i] = p.Point()
		}
		return out
	}

	out := make([]Point, 0, limit)
	step := float64(len(path)-1) / float64(limit-1)
	for k := 0; k < limit; k++ {
		idx := int(math.Round(float64(k) * step))
		out = append(out, path[idx].Point())
	}
	return out
}

func appendPolylineValue(buf []byte, v int) []byte {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		buf = append(buf, byte((u&0x1f)|0x20)+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}

func readPolylineValue(s string, i int) (value, next int, ok bool) {
	var result, shift int
	for i < len(s) {
		b := int(s[i]) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), i, true
			}
			return result >> 1, i, true
		}
	}
	return 0, i, false
}
