// Package offline queues finished trips on the device until they can be
// enriched with weather and written to the remote trip store.
package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fangstlog/fangstlog/internal/trip"
)

// Queue errors.
var (
	// ErrStorage wraps failures of the local queue store.
	ErrStorage = errors.New("offline queue storage failure")

	// ErrNetworkLost aborts a weather retry loop when reachability drops.
	ErrNetworkLost = errors.New("network reachability lost")
)

// Retry policy defaults.
const (
	// MaxRetryAttempts is the number of failed weather passes after which a
	// trip is written without weather.
	MaxRetryAttempts = 5

	// WeatherAttempts is the number of weather fetch attempts per drain pass.
	WeatherAttempts = 3

	// DefaultBaseBackoff is the delay before the second attempt. It doubles per attempt.
	DefaultBaseBackoff = 3 * time.Second
)

// State is the lifecycle state of a queued trip.
type State string

const (
	// StatePendingWeather means the trip still waits for a weather evaluation.
	StatePendingWeather State = "pending-weather"
	// StatePendingWrite means weather is attached and only the remote write is left.
	StatePendingWrite State = "pending-write"
	// StatePendingWriteDegraded means weather was given up on and the write is left.
	StatePendingWriteDegraded State = "pending-write-degraded"
)

// PendingTrip is one persisted queue entry.
type PendingTrip struct {
	ID         string               `json:"id"`
	Payload    trip.SaveTripPayload `json:"payload"`
	CreatedAt  time.Time            `json:"created_at"`
	RetryCount int                  `json:"retry_count"`
	LastError  string               `json:"last_error,omitempty"`
	Degraded   bool                 `json:"degraded,omitempty"`
}

// State derives the lifecycle state from the payload flags.
func (p PendingTrip) State() State {
	switch {
	case p.Payload.NeedsDMI:
		return StatePendingWeather
	case p.Degraded:
		return StatePendingWriteDegraded
	default:
		return StatePendingWrite
	}
}

func newPendingID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// DegradedMeta is stored as meta_json when weather retries are exhausted.
type DegradedMeta struct {
	DMIUnavailable bool      `json:"dmi_unavailable"`
	Note           string    `json:"note"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error,omitempty"`
	DegradedAt     time.Time `json:"degraded_at"`
}

func degradedMetaJSON(attempts int, reason string, at time.Time) string {
	meta := DegradedMeta{
		DMIUnavailable: true,
		Note:           fmt.Sprintf("Weather data unavailable after %d attempts: %s", attempts, reason),
		Attempts:       attempts,
		LastError:      reason,
		DegradedAt:     at.UTC(),
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Sprintf(`{"dmi_unavailable":true,"attempts":%d}`, attempts)
	}
	return string(b)
}

func decodeQueue(data []byte) ([]PendingTrip, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []PendingTrip
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding queue: %w", err)
	}
	return items, nil
}

func encodeQueue(items []PendingTrip) ([]byte, error) {
	if items == nil {
		items = []PendingTrip{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding queue: %w", err)
	}
	return b, nil
}
