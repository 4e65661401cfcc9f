package geo

import (
	"encoding/json"
	"time"
)

// rawSample mirrors the stored path JSON. Pointers distinguish a missing
// coordinate from a zero coordinate.
type rawSample struct {
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	T         json.RawMessage `json:"t"`
}

// ParsePath decodes a serialized path of {latitude, longitude, t} samples.
//
// Samples missing a coordinate or outside WGS84 bounds are dropped. The
// timestamp may be epoch milliseconds or an RFC3339 string; an unreadable
// timestamp leaves T at zero. Unparseable JSON yields nil.
func ParsePath(pathJSON string) []PathPoint {
	if pathJSON == "" {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(pathJSON), &raw); err != nil {
		return nil
	}

	points := make([]PathPoint, 0, len(raw))
	for _, item := range raw {
		var s rawSample
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}

		p := PathPoint{Latitude: *s.Latitude, Longitude: *s.Longitude, T: parseSampleTime(s.T)}
		if !p.Point().Valid() {
			continue
		}
		points = append(points, p)
	}

	return points
}

// EncodePath serializes a path in the format ParsePath reads.
func EncodePath(points []PathPoint) (string, error) {
	if points == nil {
		points = []PathPoint{}
	}
	b, err := json.Marshal(points)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseSampleTime(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return int64(ms)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UnixMilli()
		}
	}

	return 0
}
