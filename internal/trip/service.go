package trip

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/geo"
	"github.com/fangstlog/fangstlog/internal/spot"
)

const (
	// DefaultAutoTagRadius is how close a user spot must be to be linked automatically.
	DefaultAutoTagRadius = 1000.0

	// polylinePoints caps the number of points in the stored map preview.
	polylinePoints = 200
)

// BackfillNotifier is told about trips stored without weather.
type BackfillNotifier interface {
	NotifyWeatherBackfill(ctx context.Context, userID, tripID string) error
}

// ServiceConfig holds configuration for the trip service.
type ServiceConfig struct {
	Repo  Repository
	Spots spot.Repository

	// Notifier is optional.
	Notifier BackfillNotifier

	// AutoTagRadius in meters (default DefaultAutoTagRadius).
	AutoTagRadius float64

	Logger zerolog.Logger
}

// Service provides trip operations.
type Service struct {
	repo          Repository
	spots         spot.Repository
	notifier      BackfillNotifier
	autoTagRadius float64
	logger        zerolog.Logger
	now           func() time.Time
}

// NewService creates a new trip service.
func NewService(cfg ServiceConfig) *Service {
	radius := cfg.AutoTagRadius
	if radius <= 0 {
		radius = DefaultAutoTagRadius
	}
	return &Service{
		repo:          cfg.Repo,
		spots:         cfg.Spots,
		notifier:      cfg.Notifier,
		autoTagRadius: radius,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// SaveTrip validates and stores a trip for the user.
//
// When no spot was chosen the nearest user spot within the auto-tag radius
// is linked. A trip that arrives with needs_dmi set, or with a device note
// saying weather was unavailable, is stored flagged for weather backfill and
// announced to the notifier; notification failures are logged and do not
// fail the save.
func (s *Service) SaveTrip(ctx context.Context, userID string, p SaveTripPayload) (*Trip, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start, end, _ := p.Window()

	path := p.Path()
	now := s.now().UTC()
	degraded := WeatherDegraded(p.MetaJSON)

	t := &Trip{
		ID:             "trp_" + uuid.New().String()[:22],
		UserID:         userID,
		StartTS:        start.UTC(),
		EndTS:          end.UTC(),
		DurationSec:    p.DurationSec,
		DistanceM:      p.DistanceM,
		PathJSON:       p.PathJSON,
		Polyline:       geo.EncodePolyline(geo.PreviewPoints(path, polylinePoints)),
		FishCount:      FishEventsCount(p.FishEventsJSON, p.FishCount),
		FishEventsJSON: p.FishEventsJSON,
		MetaJSON:       p.MetaJSON,
		NeedsDMI:       p.NeedsDMI || degraded,
		SpotID:         p.SpotID,
		SpotName:       p.SpotName,
		SpotLat:        p.SpotLat,
		SpotLng:        p.SpotLng,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if t.SpotID == "" && p.Spot() == nil {
		s.autoTag(ctx, t, path)
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("trip_id", t.ID).
		Str("user_id", userID).
		Bool("needs_dmi", t.NeedsDMI).
		Bool("weather_degraded", degraded).
		Bool("auto_tagged", t.AutoTagged).
		Msg("trip saved")

	if t.NeedsDMI && s.notifier != nil {
		if err := s.notifier.NotifyWeatherBackfill(ctx, userID, t.ID); err != nil {
			s.logger.Warn().Err(err).Str("trip_id", t.ID).Msg("failed to request weather backfill")
		}
	}

	return t, nil
}

func (s *Service) autoTag(ctx context.Context, t *Trip, path []geo.PathPoint) {
	if s.spots == nil {
		return
	}
	loc, ok := geo.Centroid(path)
	if !ok {
		return
	}

	spots, err := s.spots.List(ctx, t.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", t.UserID).Msg("spot lookup failed, saving trip untagged")
		return
	}

	nearest, dist, ok := spot.Nearest(spots, loc, s.autoTagRadius)
	if !ok {
		return
	}

	lat, lng := nearest.Lat, nearest.Lng
	t.SpotID = nearest.ID
	t.SpotName = nearest.Name
	t.SpotLat = &lat
	t.SpotLng = &lng
	t.AutoTagged = true

	s.logger.Debug().
		Str("spot_id", nearest.ID).
		Float64("distance_m", dist).
		Msg("trip auto-tagged")
}

// Get returns one of the user's trips.
func (s *Service) Get(ctx context.Context, userID, tripID string) (*Trip, error) {
	return s.repo.Get(ctx, userID, tripID)
}

// List returns a page of the user's trips.
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	return s.repo.List(ctx, userID, opts)
}

// UpdateWeather stores a late weather evaluation for a trip.
func (s *Service) UpdateWeather(ctx context.Context, tripID, metaJSON string) error {
	return s.repo.UpdateWeather(ctx, tripID, metaJSON)
}

// UserSink binds a user to the service so trips can be saved without
// passing the user around.
type UserSink struct {
	Service *Service
	UserID  string
}

// SaveTrip stores the payload for the bound user.
func (u UserSink) SaveTrip(ctx context.Context, p SaveTripPayload) error {
	if u.UserID == "" {
		return errors.New("trip sink has no user")
	}
	_, err := u.Service.SaveTrip(ctx, u.UserID, p)
	return err
}
