package spot

import (
	"context"
	"sort"
	"sync"
)

// Repository defines the interface for spot persistence.
type Repository interface {
	// List returns all spots of a user, oldest first.
	List(ctx context.Context, userID string) ([]*Spot, error)

	// Get returns ErrSpotNotFound when the spot does not exist or belongs to another user.
	Get(ctx context.Context, userID, spotID string) (*Spot, error)

	Create(ctx context.Context, spot *Spot) error

	// Delete returns ErrSpotNotFound when nothing was deleted.
	Delete(ctx context.Context, userID, spotID string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	spots map[string]*Spot
}

// NewInMemoryRepository creates a new in-memory spot repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{spots: make(map[string]*Spot)}
}

// List returns all spots of a user, oldest first.
func (r *InMemoryRepository) List(_ context.Context, userID string) ([]*Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Spot
	for _, s := range r.spots {
		if s.UserID == userID {
			cpy := *s
			out = append(out, &cpy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Get returns a spot owned by userID.
func (r *InMemoryRepository) Get(_ context.Context, userID, spotID string) (*Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.spots[spotID]
	if !ok || s.UserID != userID {
		return nil, ErrSpotNotFound
	}
	cpy := *s
	return &cpy, nil
}

// Create stores a copy of the spot.
func (r *InMemoryRepository) Create(_ context.Context, s *Spot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *s
	r.spots[s.ID] = &cpy
	return nil
}

// Delete removes a spot owned by userID.
func (r *InMemoryRepository) Delete(_ context.Context, userID, spotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.spots[spotID]
	if !ok || s.UserID != userID {
		return ErrSpotNotFound
	}
	delete(r.spots, spotID)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
