// Package dmi fetches observations from the Danish Meteorological Institute
// open data APIs and aggregates them into per-trip weather evaluations.
package dmi

import (
	"errors"
	"math"
	"sort"
)

// Errors returned by the DMI client and evaluator.
var (
	// ErrEvaluationFailed means no data was found and at least one fetch failed.
	// Callers should retry later.
	ErrEvaluationFailed = errors.New("dmi: weather evaluation failed")

	// ErrInvalidWindow is returned when a trip ends before it starts.
	ErrInvalidWindow = errors.New("dmi: trip ends before it starts")

	// ErrUpstream is returned for non-OK responses from the DMI API.
	ErrUpstream = errors.New("dmi: upstream error")
)

// DMI parameter identifiers used for trip evaluations.
const (
	ParamAirTemp    = "mean_temp"
	ParamWindSpeed  = "mean_wind_speed"
	ParamPressure   = "mean_pressure"
	ParamWindDir    = "wind_dir"
	ParamWaterTemp  = "tw"
	ParamWaterLevel = "sealev_dvr"
)

// Sample is a single observation. TS is epoch milliseconds.
type Sample struct {
	TS int64   `json:"ts"`
	V  float64 `json:"v"`
}

// Serie is a time-ascending sequence of samples, not necessarily evenly spaced.
type Serie []Sample

// Sort orders the serie by time, keeping the original order on equal timestamps.
func (s Serie) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].TS < s[j].TS })
}

// Within returns the samples with from <= TS <= to.
func (s Serie) Within(from, to int64) Serie {
	var out Serie
	for _, v := range s {
		if v.TS >= from && v.TS <= to {
			out = append(out, v)
		}
	}
	return out
}

// Nearest returns the sample closest in time to ts. Ties keep the earlier sample.
func (s Serie) Nearest(ts int64) (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}

	best := s[0]
	bestDiff := absInt64(s[0].TS - ts)
	for _, v := range s[1:] {
		if d := absInt64(v.TS - ts); d < bestDiff {
			best, bestDiff = v, d
		}
	}
	return best, true
}

// Stat summarizes a scalar measurement.
type Stat struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Aggregate computes {avg, min, max} over the serie. Nil for an empty serie.
func Aggregate(s Serie) *Stat {
	if len(s) == 0 {
		return nil
	}

	st := &Stat{Min: s[0].V, Max: s[0].V}
	sum := 0.0
	for _, v := range s {
		sum += v.V
		st.Min = math.Min(st.Min, v.V)
		st.Max = math.Max(st.Max, v.V)
	}
	st.Avg = sum / float64(len(s))
	return st
}

// AggregateDirection is Aggregate for compass directions in degrees.
// The average is the circular mean, so 350 and 10 average to 0.
func AggregateDirection(s Serie) *Stat {
	st := Aggregate(s)
	if st == nil {
		return nil
	}

	var sinSum, cosSum float64
	for _, v := range s {
		rad := v.V * math.Pi / 180
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}

	deg := math.Atan2(sinSum, cosSum) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	// Snap float noise around north back to 0.
	if deg >= 359.9999999 {
		deg = 0
	}
	st.Avg = deg
	return st
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
