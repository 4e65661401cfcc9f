package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/api/middleware"
	"github.com/fangstlog/fangstlog/internal/api/models"
	"github.com/fangstlog/fangstlog/internal/api/response"
	"github.com/fangstlog/fangstlog/internal/auth"
)

// AuthHandler issues development tokens. Production clients get their
// tokens from the identity provider, not from this API.
type AuthHandler struct {
	auth   *auth.Service
	logger zerolog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc *auth.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, logger: logger}
}

// DevToken handles POST /v1/auth/dev-token. An empty body issues a token for
// a fresh user. Answers 404 unless development tokens are enabled, so the
// route looks absent in production.
func (h *AuthHandler) DevToken(w http.ResponseWriter, r *http.Request) {
	var req auth.DevTokenRequest
	if err := response.Decode(r, &req); err != nil && !errors.Is(err, response.ErrEmptyBody) {
		response.DecodeError(w, r, err)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		fields := make([]models.FieldError, 0, len(errs))
		for _, e := range errs {
			fields = append(fields, models.FieldError(e))
		}
		response.BadRequest(w, r, "invalid dev token request", fields)
		return
	}

	token, err := h.auth.IssueDevToken(&req)
	switch {
	case errors.Is(err, auth.ErrDevTokensDisabled):
		response.NotFound(w, r, "")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("issuing dev token")
		response.InternalError(w, r, "failed to issue token")
		return
	}

	h.logger.Info().Str("user_id", token.UserID).Msg("dev token issued")
	response.JSON(w, r, http.StatusOK, token)
}
