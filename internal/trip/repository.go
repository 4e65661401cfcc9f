package trip

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ListOptions contains options for listing trips.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing trips.
type ListResult struct {
	Items      []*Trip
	NextCursor string
}

// Repository defines the interface for trip persistence.
type Repository interface {
	// Create stores a new trip. The write is all or nothing.
	Create(ctx context.Context, trip *Trip) error

	// Get returns ErrTripNotFound if the trip doesn't exist or belongs to another user.
	Get(ctx context.Context, userID, tripID string) (*Trip, error)

	// List returns a user's trips, newest start first.
	List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error)

	// UpdateWeather stores a weather evaluation and clears needs_dmi.
	UpdateWeather(ctx context.Context, tripID, metaJSON string) error

	// ListNeedingWeather returns trips still flagged needs_dmi, oldest first.
	ListNeedingWeather(ctx context.Context, limit int) ([]*Trip, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	trips map[string]*Trip
}

// NewInMemoryRepository creates a new in-memory trip repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{trips: make(map[string]*Trip)}
}

// Create stores a copy of the trip.
func (r *InMemoryRepository) Create(_ context.Context, t *Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *t
	r.trips[t.ID] = &cpy
	return nil
}

// Get retrieves a trip owned by userID.
func (r *InMemoryRepository) Get(_ context.Context, userID, tripID string) (*Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trips[tripID]
	if !ok || t.UserID != userID {
		return nil, ErrTripNotFound
	}
	cpy := *t
	return &cpy, nil
}

// List returns a user's trips, newest start first.
// The cursor is the ID of the last trip of the previous page.
func (r *InMemoryRepository) List(_ context.Context, userID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var trips []*Trip
	for _, t := range r.trips {
		if t.UserID == userID {
			cpy := *t
			trips = append(trips, &cpy)
		}
	}
	sort.Slice(trips, func(i, j int) bool {
		if trips[i].StartTS.Equal(trips[j].StartTS) {
			return trips[i].ID > trips[j].ID
		}
		return trips[i].StartTS.After(trips[j].StartTS)
	})

	if opts.Cursor != "" {
		for i, t := range trips {
			if t.ID == opts.Cursor {
				trips = trips[i+1:]
				break
			}
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	result := &ListResult{Items: trips}
	if len(trips) > limit {
		result.Items = trips[:limit]
		result.NextCursor = trips[limit-1].ID
	}
	return result, nil
}

// UpdateWeather stores a weather evaluation and clears needs_dmi.
func (r *InMemoryRepository) UpdateWeather(_ context.Context, tripID, metaJSON string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trips[tripID]
	if !ok {
		return ErrTripNotFound
	}
	t.MetaJSON = metaJSON
	t.NeedsDMI = false
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// ListNeedingWeather returns trips flagged needs_dmi, oldest first.
func (r *InMemoryRepository) ListNeedingWeather(_ context.Context, limit int) ([]*Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var trips []*Trip
	for _, t := range r.trips {
		if t.NeedsDMI {
			cpy := *t
			trips = append(trips, &cpy)
		}
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].CreatedAt.Before(trips[j].CreatedAt) })

	if limit > 0 && len(trips) > limit {
		trips = trips[:limit]
	}
	return trips, nil
}

var _ Repository = (*InMemoryRepository)(nil)
