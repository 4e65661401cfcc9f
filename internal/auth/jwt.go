package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Access tokens are HS256 JWTs whose subject is the angler's user ID. The
// API keeps no token state; a token is good until it expires. Sign-in
// itself happens at the app's identity provider.

// DefaultAccessTokenTTL applies when JWTConfig.AccessTokenTTL is zero.
const DefaultAccessTokenTTL = time.Hour

// DefaultClockSkew is tolerated on exp and nbf. Phones that were offline
// for days often sync with a drifting clock.
const DefaultClockSkew = 30 * time.Second

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
)

// Claims is what a valid access token proves.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// JWTConfig configures JWTService.
type JWTConfig struct {
	SigningKey     string
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
	ClockSkew      time.Duration
}

// JWTService signs and verifies access tokens.
type JWTService struct {
	key    []byte
	cfg    JWTConfig
	parser *jwt.Parser
}

// NewJWTService creates a JWTService, filling zero durations with defaults.
func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = DefaultClockSkew
	}
	return &JWTService{
		key: []byte(cfg.SigningKey),
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.ClockSkew),
		),
	}
}

// GenerateAccessToken signs a token for userID and reports when it expires.
func (s *JWTService) GenerateAccessToken(userID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   userID,
		Audience:  jwt.ClaimStrings{s.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies signature, issuer, audience and lifetime.
// Expiry is reported as ErrAccessTokenExpired so clients know to refresh;
// every other failure wraps ErrInvalidAccessToken.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := s.parser.ParseWithClaims(tokenString, &rc, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	case rc.Subject == "":
		return nil, fmt.Errorf("%w: no subject", ErrInvalidAccessToken)
	}

	return &Claims{
		UserID:    rc.Subject,
		TokenID:   rc.ID,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}
