package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fangstlog/fangstlog/internal/auth"
)

func TestService_IssueDevToken(t *testing.T) {
	svc := auth.NewService(auth.ServiceConfig{JWTService: auth.NewJWTService(testConfig()), DevTokens: true})

	resp, err := svc.IssueDevToken(&auth.DevTokenRequest{UserID: "usr_angler"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "usr_angler", resp.UserID)
	assert.InDelta(t, 3600, resp.ExpiresIn, 2)

	userID, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr_angler", userID)
}

func TestService_IssueDevToken_NewUser(t *testing.T) {
	svc := auth.NewService(auth.ServiceConfig{JWTService: auth.NewJWTService(testConfig()), DevTokens: true})

	a, err := svc.IssueDevToken(&auth.DevTokenRequest{})
	require.NoError(t, err)
	b, err := svc.IssueDevToken(&auth.DevTokenRequest{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.UserID, "usr_"))
	assert.Len(t, a.UserID, len("usr_")+22)
	assert.NotEqual(t, a.UserID, b.UserID)
	assert.Empty(t, (&auth.DevTokenRequest{UserID: a.UserID}).Validate(), "minted IDs pass validation")
}

func TestService_IssueDevToken_Disabled(t *testing.T) {
	svc := auth.NewService(auth.ServiceConfig{JWTService: auth.NewJWTService(testConfig())})

	_, err := svc.IssueDevToken(&auth.DevTokenRequest{})
	assert.ErrorIs(t, err, auth.ErrDevTokensDisabled)
}

func TestDevTokenRequest_Validate(t *testing.T) {
	tests := []struct {
		userID string
		code   string
	}{
		{"", ""},
		{"usr_angler-1", ""},
		{strings.Repeat("x", 64), ""},
		{strings.Repeat("x", 65), "TOO_LONG"},
		{"usr angler", "INVALID_FORMAT"},
		{"usr_ørred", "INVALID_FORMAT"},
	}

	for _, tt := range tests {
		errs := (&auth.DevTokenRequest{UserID: tt.userID}).Validate()
		if tt.code == "" {
			assert.Empty(t, errs, tt.userID)
			continue
		}
		require.Len(t, errs, 1, tt.userID)
		assert.Equal(t, "userId", errs[0].Field)
		assert.Equal(t, tt.code, errs[0].Code)
	}
}
