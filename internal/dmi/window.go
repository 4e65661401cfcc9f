package dmi

import "time"

const (
	// ShortTripThreshold is the duration below which a trip uses the widened window.
	ShortTripThreshold = time.Hour

	// ShortTripPad widens a short trip's query window on each side of its midpoint.
	ShortTripPad = 6 * time.Hour
)

// Window is the time range a trip is evaluated over.
//
// A trip shorter than ShortTripThreshold queries mid ± ShortTripPad so that
// hourly stations still return something, but its statistic comes from the
// single sample nearest the midpoint. Longer trips query and aggregate the
// exact trip window.
type Window struct {
	Start time.Time
	End   time.Time
	Mid   time.Time
	Short bool
}

// NewWindow builds the evaluation window for a trip.
func NewWindow(start, end time.Time) (Window, error) {
	if end.Before(start) {
		return Window{}, ErrInvalidWindow
	}

	start, end = start.UTC(), end.UTC()
	return Window{
		Start: start,
		End:   end,
		Mid:   start.Add(end.Sub(start) / 2),
		Short: end.Sub(start) < ShortTripThreshold,
	}, nil
}

// QueryStart is the start of the range requested from DMI.
func (w Window) QueryStart() time.Time {
	if w.Short {
		return w.Mid.Add(-ShortTripPad)
	}
	return w.Start
}

// QueryEnd is the end of the range requested from DMI.
func (w Window) QueryEnd() time.Time {
	if w.Short {
		return w.Mid.Add(ShortTripPad)
	}
	return w.End
}

// Datetime formats the query range as DMI's "<start>/<end>" interval.
func (w Window) Datetime() string {
	return w.QueryStart().Format(time.RFC3339) + "/" + w.QueryEnd().Format(time.RFC3339)
}

// Select returns the samples a statistic is computed from.
func (w Window) Select(s Serie) Serie {
	if w.Short {
		nearest, ok := s.Nearest(w.Mid.UnixMilli())
		if !ok {
			return nil
		}
		return Serie{nearest}
	}
	return s.Within(w.Start.UnixMilli(), w.End.UnixMilli())
}

// Stat aggregates a scalar serie over the window.
func (w Window) Stat(s Serie) *Stat {
	return Aggregate(w.Select(s))
}

// DirectionStat aggregates a direction serie over the window.
func (w Window) DirectionStat(s Serie) *Stat {
	return AggregateDirection(w.Select(s))
}
