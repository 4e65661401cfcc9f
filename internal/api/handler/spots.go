package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/api/middleware"
	"github.com/fangstlog/fangstlog/internal/api/models"
	"github.com/fangstlog/fangstlog/internal/api/response"
	"github.com/fangstlog/fangstlog/internal/spot"
)

// SpotHandler handles spot endpoints.
type SpotHandler struct {
	spots  *spot.Service
	logger zerolog.Logger
}

// NewSpotHandler creates a new SpotHandler.
func NewSpotHandler(spots *spot.Service, logger zerolog.Logger) *SpotHandler {
	return &SpotHandler{spots: spots, logger: logger}
}

// ListSpots handles GET /v1/me/spots.
func (h *SpotHandler) ListSpots(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	spots, err := h.spots.List(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("listing spots failed")
		response.InternalError(w, r, "failed to list spots")
		return
	}

	list := models.SpotList{Items: make([]models.Spot, 0, len(spots))}
	for _, s := range spots {
		list.Items = append(list.Items, toSpotModel(s))
	}
	response.JSON(w, r, http.StatusOK, list)
}

// CreateSpot handles POST /v1/me/spots. Coordinates may be sent as
// lat/latitude and lng/lon/longitude.
func (h *SpotHandler) CreateSpot(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input spot.Spot
	if err := response.Decode(r, &input); err != nil {
		if errors.Is(err, spot.ErrInvalidSpot) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		response.DecodeError(w, r, err)
		return
	}

	created, err := h.spots.Create(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, spot.ErrInvalidSpot) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("creating spot failed")
		response.InternalError(w, r, "failed to create spot")
		return
	}

	response.Created(w, r, "/v1/me/spots/"+created.ID, toSpotModel(created))
}

// DeleteSpot handles DELETE /v1/me/spots/{spotId}.
func (h *SpotHandler) DeleteSpot(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	spotID := chi.URLParam(r, "spotId")

	if err := h.spots.Delete(r.Context(), userID, spotID); err != nil {
		if errors.Is(err, spot.ErrSpotNotFound) {
			response.NotFound(w, r, "spot not found")
			return
		}
		h.logger.Error().Err(err).Str("spot_id", spotID).Msg("deleting spot failed")
		response.InternalError(w, r, "failed to delete spot")
		return
	}

	response.NoContent(w, r)
}

func toSpotModel(s *spot.Spot) models.Spot {
	return models.Spot{
		ID:        s.ID,
		Name:      s.Name,
		Lat:       s.Lat,
		Lng:       s.Lng,
		CreatedAt: s.CreatedAt,
	}
}
