package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDevTokensDisabled is returned by IssueDevToken unless DevTokens is set.
var ErrDevTokensDisabled = errors.New("dev tokens are disabled")

// ServiceConfig configures Service.
type ServiceConfig struct {
	JWTService *JWTService

	// DevTokens lets anyone mint a token for any user. Local development
	// and sync agent test rigs only; config refuses it in production.
	DevTokens bool
}

// Service is the auth surface the HTTP layer uses.
type Service struct {
	jwt       *JWTService
	devTokens bool
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{jwt: cfg.JWTService, devTokens: cfg.DevTokens}
}

// ValidateAccessToken returns the user a bearer token was issued to.
func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// IssueDevToken mints an access token without sign-in.
func (s *Service) IssueDevToken(req *DevTokenRequest) (*TokenResponse, error) {
	if !s.devTokens {
		return nil, ErrDevTokensDisabled
	}

	userID := req.UserID
	if userID == "" {
		userID = newUserID()
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("issuing dev token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Round(time.Second).Seconds()),
		UserID:      userID,
	}, nil
}

func newUserID() string {
	return "usr_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:22]
}
