package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"loot-tracker/internal/auth/models"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockJWTValidator implements JWTValidator for testing
type MockJWTValidator struct {
	ValidUser *models.AuthenticatedUser
}

func (m *MockJWTValidator) ValidateJWT(ctx context.Context, token string) (*models.AuthenticatedUser, error) {
	if token == "valid_token" {
		return m.ValidUser, nil
	}
	return nil, errors.New("invalid token")
}

type staticPolicy map[models.Role][]models.Capability

func (p staticPolicy) Can(role models.Role, capability models.Capability) bool {
	for _, granted := range p[role] {
		if granted == capability {
			return true
		}
	}
	return false
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var statusErr huma.StatusError
	require.True(t, errors.As(err, &statusErr), "expected huma status error, got %v", err)
	return statusErr.GetStatus()
}

func TestHumaAuthMiddleware(t *testing.T) {
	member := &models.AuthenticatedUser{UserID: "u1", Username: "tank", CharacterName: "Tanky", Role: models.RoleUser}
	policy := staticPolicy{models.RoleUser: {models.CapAuctionsBid}}
	m := NewHumaAuthMiddleware(&MockJWTValidator{ValidUser: member}, policy)
	ctx := context.Background()

	t.Run("XAuthTokenHeader", func(t *testing.T) {
		user, err := m.RequireAuth(ctx, AuthHeaders{AuthToken: "valid_token"})
		require.NoError(t, err)
		assert.Equal(t, "u1", user.UserID)
	})

	t.Run("BearerHeader", func(t *testing.T) {
		user, err := m.RequireAuth(ctx, AuthHeaders{Authorization: "Bearer valid_token"})
		require.NoError(t, err)
		assert.Equal(t, "Tanky", user.CharacterName)
	})

	t.Run("MissingToken", func(t *testing.T) {
		_, err := m.RequireAuth(ctx, AuthHeaders{})
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("InvalidToken", func(t *testing.T) {
		_, err := m.RequireAuth(ctx, AuthHeaders{AuthToken: "forged"})
		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("CapabilityGranted", func(t *testing.T) {
		user, err := m.RequireCapability(ctx, AuthHeaders{AuthToken: "valid_token"}, models.CapAuctionsBid)
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, user.Role)
	})

	t.Run("CapabilityDenied", func(t *testing.T) {
		_, err := m.RequireCapability(ctx, AuthHeaders{AuthToken: "valid_token"}, models.CapKillsWrite)
		assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	})
}

func TestAuthHeadersToken(t *testing.T) {
	assert.Equal(t, "abc", AuthHeaders{AuthToken: " abc "}.Token())
	assert.Equal(t, "abc", AuthHeaders{AuthToken: "abc", Authorization: "Bearer other"}.Token())
	assert.Equal(t, "xyz", AuthHeaders{Authorization: "Bearer xyz"}.Token())
	assert.Equal(t, "", AuthHeaders{Authorization: "Basic xyz"}.Token())
}
