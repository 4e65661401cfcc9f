// Package auth issues and verifies API access tokens.
package auth

import "regexp"

// FieldError is a validation failure on one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TokenResponse is returned when a token is issued.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
	UserID      string `json:"userId"`
}

// DevTokenRequest asks for a development token. An empty UserID mints a
// new user.
type DevTokenRequest struct {
	UserID string `json:"userId,omitempty"`
}

// userIDPattern keeps user IDs safe to embed in log lines and cache keys.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Validate reports problems with the request.
func (r *DevTokenRequest) Validate() []FieldError {
	if r.UserID == "" || userIDPattern.MatchString(r.UserID) {
		return nil
	}
	code, msg := "INVALID_FORMAT", "user id may only contain letters, digits, '_' and '-'"
	if len(r.UserID) > 64 {
		code, msg = "TOO_LONG", "user id must be at most 64 characters"
	}
	return []FieldError{{Field: "userId", Message: msg, Code: code}}
}
