package spot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service provides spot operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new spot service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns the user's spots.
func (s *Service) List(ctx context.Context, userID string) ([]*Spot, error) {
	return s.repo.List(ctx, userID)
}

// Create validates and stores a new spot for the user.
func (s *Service) Create(ctx context.Context, userID string, input Spot) (*Spot, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := input.Validate(); err != nil {
		return nil, err
	}

	sp := &Spot{
		ID:        "spt_" + uuid.New().String()[:22],
		UserID:    userID,
		Name:      input.Name,
		Lat:       input.Lat,
		Lng:       input.Lng,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// Delete removes one of the user's spots.
func (s *Service) Delete(ctx context.Context, userID, spotID string) error {
	return s.repo.Delete(ctx, userID, spotID)
}
