package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fangstlog/fangstlog/internal/api/models"
	"github.com/fangstlog/fangstlog/internal/auth"
)

const authRealm = "fangstlog"

type userIDKey struct{}

var (
	errNoCredentials = errors.New("missing authorization header")
	errMalformedAuth = errors.New("invalid authorization header format")
)

// Auth requires a valid bearer access token and puts its subject in the
// request context. Failures answer 401 with an RFC 6750 challenge.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if errors.Is(err, errNoCredentials) {
				challenge(w, r, "", err.Error())
				return
			}
			if err != nil {
				challenge(w, r, "invalid_request", err.Error())
				return
			}

			userID, err := authService.ValidateAccessToken(token)
			if err != nil {
				detail := "invalid access token"
				if errors.Is(err, auth.ErrAccessTokenExpired) {
					detail = "access token has expired"
				}
				challenge(w, r, "invalid_token", detail)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMalformedAuth
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMalformedAuth
	}
	return token, nil
}

// challenge writes a 401. errorCode is omitted when no credentials were sent.
func challenge(w http.ResponseWriter, r *http.Request, errorCode, detail string) {
	value := fmt.Sprintf("Bearer realm=%q", authRealm)
	if errorCode != "" {
		value += fmt.Sprintf(", error=%q", errorCode)
	}
	w.Header().Set("WWW-Authenticate", value)

	problem := models.NewProblem(http.StatusUnauthorized, GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// WithUserID stores the authenticated user in ctx and on the request info
// read by the logging and tracing middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	if info := infoFrom(ctx); info != nil {
		info.userID = userID
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserID returns the authenticated user, or "" on public routes.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

// requestUser is the user authenticated anywhere in the chain below ctx.
func requestUser(ctx context.Context) string {
	if info := infoFrom(ctx); info != nil {
		return info.userID
	}
	return GetUserID(ctx)
}
