package offline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fangstlog/fangstlog/internal/dmi"
	"github.com/fangstlog/fangstlog/internal/trip"
)

// WeatherEnricher evaluates weather for a trip and returns the meta_json
// document to store with it. "No data available" is a successful result.
type WeatherEnricher interface {
	Enrich(ctx context.Context, p trip.SaveTripPayload) (string, error)
}

// TripSink is the remote trip store. A save either fully succeeds or fails.
type TripSink interface {
	SaveTrip(ctx context.Context, p trip.SaveTripPayload) error
}

// DMIEnricher enriches trips with the DMI evaluator.
type DMIEnricher struct {
	Evaluator *dmi.Evaluator
}

// Enrich runs a weather evaluation over the trip window and location.
func (e DMIEnricher) Enrich(ctx context.Context, p trip.SaveTripPayload) (string, error) {
	start, end, err := p.Window()
	if err != nil {
		return "", err
	}

	ev, err := e.Evaluator.Evaluate(ctx, dmi.TripInput{
		Start: start,
		End:   end,
		Path:  p.Path(),
		Spot:  p.Spot(),
	})
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encoding evaluation: %w", err)
	}
	return string(b), nil
}

var _ WeatherEnricher = DMIEnricher{}
