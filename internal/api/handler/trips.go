package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/api/middleware"
	"github.com/fangstlog/fangstlog/internal/api/models"
	"github.com/fangstlog/fangstlog/internal/api/response"
	"github.com/fangstlog/fangstlog/internal/trip"
)

const (
	defaultTripPageSize = 50
	maxTripPageSize     = 200
)

// TripHandler handles trip endpoints.
type TripHandler struct {
	trips  *trip.Service
	logger zerolog.Logger
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(trips *trip.Service, logger zerolog.Logger) *TripHandler {
	return &TripHandler{trips: trips, logger: logger}
}

// ListTrips handles GET /v1/me/trips.
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := defaultTripPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, r, "limit must be a positive integer", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer", Code: "INVALID"},
			})
			return
		}
		limit = min(n, maxTripPageSize)
	}

	result, err := h.trips.List(r.Context(), userID, trip.ListOptions{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("listing trips failed")
		response.InternalError(w, r, "failed to list trips")
		return
	}

	list := models.TripList{Items: make([]models.Trip, 0, len(result.Items))}
	for _, t := range result.Items {
		item := toTripModel(t)
		item.PathJSON = ""
		list.Items = append(list.Items, item)
	}
	list.Meta.Limit = limit
	if result.NextCursor != "" {
		next := result.NextCursor
		list.Meta.NextCursor = &next
	}

	response.JSON(w, r, http.StatusOK, list)
}

// CreateTrip handles POST /v1/me/trips.
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var payload trip.SaveTripPayload
	if err := response.Decode(r, &payload); err != nil {
		response.DecodeError(w, r, err)
		return
	}

	t, err := h.trips.SaveTrip(r.Context(), userID, payload)
	if err != nil {
		if errors.Is(err, trip.ErrInvalidPayload) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("saving trip failed")
		response.InternalError(w, r, "failed to save trip")
		return
	}

	response.Created(w, r, "/v1/me/trips/"+t.ID, toTripModel(t))
}

// GetTrip handles GET /v1/me/trips/{tripId}.
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tripID := chi.URLParam(r, "tripId")

	t, err := h.trips.Get(r.Context(), userID, tripID)
	if err != nil {
		if errors.Is(err, trip.ErrTripNotFound) {
			response.NotFound(w, r, "trip not found")
			return
		}
		h.logger.Error().Err(err).Str("trip_id", tripID).Msg("loading trip failed")
		response.InternalError(w, r, "failed to load trip")
		return
	}

	response.JSON(w, r, http.StatusOK, toTripModel(t))
}

func toTripModel(t *trip.Trip) models.Trip {
	m := models.Trip{
		ID:             t.ID,
		StartTS:        t.StartTS,
		EndTS:          t.EndTS,
		DurationSec:    t.DurationSec,
		DistanceM:      t.DistanceM,
		Polyline:       t.Polyline,
		PathJSON:       t.PathJSON,
		FishCount:      trip.GetFishEventsCount(t),
		FishEventsJSON: t.FishEventsJSON,
		MetaJSON:       t.MetaJSON,
		NeedsDMI:       t.NeedsDMI,
		CreatedAt:      t.CreatedAt,
	}
	if t.SpotID != "" || t.SpotName != "" || t.SpotLat != nil {
		m.Spot = &models.TripSpot{
			ID:         t.SpotID,
			Name:       t.SpotName,
			Lat:        t.SpotLat,
			Lng:        t.SpotLng,
			AutoTagged: t.AutoTagged,
		}
	}
	return m
}
