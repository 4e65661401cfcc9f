package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/dmi"
	"github.com/fangstlog/fangstlog/internal/trip"
)

// Config holds configuration for the queue.
type Config struct {
	Store        Store
	Weather      WeatherEnricher
	Sink         TripSink
	Reachability Reachability

	// MaxRetryAttempts before a trip is written without weather (default MaxRetryAttempts).
	MaxRetryAttempts int

	// WeatherAttempts per drain pass (default WeatherAttempts).
	WeatherAttempts int

	// BaseBackoff before the second weather attempt (default DefaultBaseBackoff).
	BaseBackoff time.Duration

	// Metrics is optional.
	Metrics *Metrics

	Logger zerolog.Logger
}

// Queue is the offline trip queue. Enqueue and Sync are safe for
// concurrent use; overlapping syncs collapse into one.
type Queue struct {
	store           Store
	weather         WeatherEnricher
	sink            TripSink
	reach           Reachability
	maxRetries      int
	weatherAttempts int
	baseBackoff     time.Duration
	metrics         *Metrics
	logger          zerolog.Logger

	// mu serializes read-modify-write cycles on the store.
	mu   sync.Mutex
	lock DrainLock
	now  func() time.Time
}

// NewQueue creates a queue.
func NewQueue(cfg Config) *Queue {
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = MaxRetryAttempts
	}
	if cfg.WeatherAttempts <= 0 {
		cfg.WeatherAttempts = WeatherAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if cfg.Reachability == nil {
		cfg.Reachability = NewStaticReachability(true)
	}

	return &Queue{
		store:           cfg.Store,
		weather:         cfg.Weather,
		sink:            cfg.Sink,
		reach:           cfg.Reachability,
		maxRetries:      cfg.MaxRetryAttempts,
		weatherAttempts: cfg.WeatherAttempts,
		baseBackoff:     cfg.BaseBackoff,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		now:             time.Now,
	}
}

// Enqueue appends a trip that still needs weather.
func (q *Queue) Enqueue(ctx context.Context, p trip.SaveTripPayload) (PendingTrip, error) {
	p.NeedsDMI = true
	return q.enqueue(ctx, p)
}

func (q *Queue) enqueue(ctx context.Context, p trip.SaveTripPayload) (PendingTrip, error) {
	now := q.now()
	item := PendingTrip{
		ID:        newPendingID(now),
		Payload:   p,
		CreatedAt: now.UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.store.Load(ctx)
	if err != nil {
		q.logger.Error().Err(err).Str("pending_id", item.ID).Msg("failed to load offline queue")
		return PendingTrip{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	items = append(items, item)
	if err := q.store.Save(ctx, items); err != nil {
		q.logger.Error().Err(err).Str("pending_id", item.ID).Msg("failed to persist offline trip")
		return PendingTrip{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	q.metrics.recordDepth(ctx, len(items))
	q.logger.Info().
		Str("pending_id", item.ID).
		Str("state", string(item.State())).
		Int("queue_depth", len(items)).
		Msg("trip queued offline")

	return item, nil
}

// Pending returns the queued trips.
func (q *Queue) Pending(ctx context.Context) ([]PendingTrip, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return items, nil
}

// Syncing reports whether a drain is in progress.
func (q *Queue) Syncing() bool {
	return q.lock.Held()
}

type itemResult int

const (
	itemWritten itemResult = iota
	itemKept
	itemHalted
)

// Sync drains the queue once and returns the number of trips written.
//
// Items are processed in insertion order. Nothing is touched while the
// network is unreachable, and a drain already in progress turns this call
// into a no-op. Failures are recorded on the items, never returned.
func (q *Queue) Sync(ctx context.Context) int {
	if !q.lock.TryLock() {
		q.logger.Debug().Msg("offline sync already running")
		return 0
	}
	defer q.lock.Unlock()

	q.mu.Lock()
	items, err := q.store.Load(ctx)
	q.mu.Unlock()
	if err != nil {
		q.logger.Error().Err(err).Msg("failed to load offline queue")
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	if !q.reach.Reachable(ctx) {
		q.logger.Debug().Int("queue_depth", len(items)).Msg("network unreachable, skipping offline sync")
		return 0
	}

	q.logger.Info().Int("queue_depth", len(items)).Msg("starting offline sync")

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		seen[item.ID] = struct{}{}
	}

	survivors := make([]PendingTrip, 0, len(items))
	synced := 0
	for i := range items {
		if ctx.Err() != nil {
			survivors = append(survivors, items[i:]...)
			break
		}

		item, res := q.process(ctx, items[i])
		if res == itemWritten {
			synced++
			continue
		}
		survivors = append(survivors, item)
		if res == itemHalted {
			survivors = append(survivors, items[i+1:]...)
			break
		}
	}

	// Persist even when ctx was cancelled mid-pass.
	q.persist(context.WithoutCancel(ctx), survivors, seen)
	q.metrics.recordSynced(ctx, synced)

	q.logger.Info().
		Int("synced", synced).
		Int("remaining", len(survivors)).
		Msg("offline sync completed")

	return synced
}

func (q *Queue) process(ctx context.Context, item PendingTrip) (PendingTrip, itemResult) {
	log := q.logger.With().Str("pending_id", item.ID).Logger()

	if item.Payload.NeedsDMI {
		meta, err := q.fetchWeather(ctx, item.Payload)
		switch {
		case err == nil:
			item.Payload.MetaJSON = meta
			item.Payload.NeedsDMI = false

		case errors.Is(err, ErrNetworkLost) || ctx.Err() != nil:
			item.LastError = err.Error()
			log.Warn().Err(err).Msg("offline sync interrupted")
			return item, itemHalted

		default:
			item.RetryCount++
			item.LastError = err.Error()
			q.metrics.recordWeatherFailure(ctx)

			if item.RetryCount < q.maxRetries {
				log.Warn().Err(err).Int("retry_count", item.RetryCount).Msg("weather enrichment failed, keeping trip queued")
				return item, itemKept
			}

			item.Payload.MetaJSON = degradedMetaJSON(item.RetryCount, err.Error(), q.now())
			item.Payload.NeedsDMI = false
			item.Degraded = true
			q.metrics.recordDegraded(ctx)
			log.Warn().Err(err).Int("retry_count", item.RetryCount).Msg("weather retries exhausted, saving trip without weather")
		}
	}

	if err := q.sink.SaveTrip(ctx, item.Payload); err != nil {
		item.RetryCount++
		item.LastError = err.Error()
		q.metrics.recordWriteFailure(ctx)
		log.Warn().Err(err).Str("state", string(item.State())).Msg("trip write failed, keeping trip queued")
		return item, itemKept
	}

	log.Info().Bool("degraded", item.Degraded).Msg("queued trip synced")
	return item, itemWritten
}

// fetchWeather tries the enricher up to weatherAttempts times with
// exponential backoff. Reachability is checked again before each retry and
// after the last failed attempt; a dropped link ends the loop with
// ErrNetworkLost so the failure is not charged to the weather service.
func (q *Queue) fetchWeather(ctx context.Context, p trip.SaveTripPayload) (string, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = q.baseBackoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = q.baseBackoff << uint(q.weatherAttempts)
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(q.weatherAttempts-1)), ctx)

	var (
		meta      string
		attempt   int
		permanent bool
	)
	operation := func() error {
		attempt++
		if attempt > 1 && !q.reach.Reachable(ctx) {
			permanent = true
			return backoff.Permanent(ErrNetworkLost)
		}

		m, err := q.weather.Enrich(ctx, p)
		if err != nil {
			if errors.Is(err, dmi.ErrInvalidWindow) || errors.Is(err, trip.ErrInvalidPayload) {
				permanent = true
				return backoff.Permanent(err)
			}
			return err
		}
		meta = m
		return nil
	}

	notify := func(err error, wait time.Duration) {
		q.logger.Debug().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("weather attempt failed, retrying")
	}

	err := backoff.RetryNotify(operation, b, notify)
	switch {
	case err == nil:
		return meta, nil
	case permanent || ctx.Err() != nil:
		return "", err
	case !q.reach.Reachable(ctx):
		return "", fmt.Errorf("%w: %w", ErrNetworkLost, err)
	default:
		return "", err
	}
}

// persist writes the survivors back. Entries enqueued while the drain ran
// are not in seen and are kept after the survivors.
func (q *Queue) persist(ctx context.Context, survivors []PendingTrip, seen map[string]struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.store.Load(ctx)
	if err != nil {
		q.logger.Error().Err(err).Msg("failed to reload offline queue, trips queued during sync may be lost")
	}
	for _, item := range current {
		if _, ok := seen[item.ID]; !ok {
			survivors = append(survivors, item)
		}
	}

	if err := q.store.Save(ctx, survivors); err != nil {
		q.logger.Error().Err(err).Int("remaining", len(survivors)).Msg("failed to persist offline queue")
		return
	}
	q.metrics.recordDepth(ctx, len(survivors))
}

// Outcome is the result of SaveOrQueue.
type Outcome int

const (
	// OutcomeSaved means the trip reached the remote store.
	OutcomeSaved Outcome = iota
	// OutcomeQueued means the trip was stored locally for a later sync.
	OutcomeQueued
	// OutcomeRejected means the payload was invalid and nothing was stored.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeQueued:
		return "queued"
	default:
		return "rejected"
	}
}

// SaveOrQueue is the entry point for a finished trip. When the network is
// reachable it makes one weather evaluation and one remote save; anything
// that fails lands the trip in the queue. Weather resolved before a failed
// save is kept with the queued trip.
func (q *Queue) SaveOrQueue(ctx context.Context, p trip.SaveTripPayload) (Outcome, error) {
	if err := p.Validate(); err != nil {
		return OutcomeRejected, err
	}

	if !q.reach.Reachable(ctx) {
		_, err := q.Enqueue(ctx, p)
		return OutcomeQueued, err
	}

	if p.NeedsDMI {
		meta, err := q.weather.Enrich(ctx, p)
		if err != nil {
			q.logger.Warn().Err(err).Msg("weather evaluation failed, queueing trip")
			_, err := q.Enqueue(ctx, p)
			return OutcomeQueued, err
		}
		p.MetaJSON = meta
		p.NeedsDMI = false
	}

	if err := q.sink.SaveTrip(ctx, p); err != nil {
		q.logger.Warn().Err(err).Msg("trip save failed, queueing trip")
		_, err := q.enqueue(ctx, p)
		return OutcomeQueued, err
	}

	return OutcomeSaved, nil
}
