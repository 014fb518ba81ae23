package middleware

import (
	"context"
	"strings"

	"loot-tracker/internal/auth/models"

	"github.com/danielgtaylor/huma/v2"
)

// AuthHeaders is embedded into every authenticated huma input. The session token is read
// from x-auth-token first and from a Bearer Authorization header otherwise.
type AuthHeaders struct {
	AuthToken     string `header:"x-auth-token" doc:"Session token"`
	Authorization string `header:"Authorization" doc:"Bearer session token"`
}

// Token returns the session token carried by the headers
func (h AuthHeaders) Token() string {
	if token := strings.TrimSpace(h.AuthToken); token != "" {
		return token
	}
	if strings.HasPrefix(h.Authorization, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h.Authorization, "Bearer "))
	}
	return ""
}

// JWTValidator interface for JWT validation
type JWTValidator interface {
	ValidateJWT(ctx context.Context, token string) (*models.AuthenticatedUser, error)
}

// CapabilityChecker answers role to capability questions
type CapabilityChecker interface {
	Can(role models.Role, capability models.Capability) bool
}

// HumaAuthMiddleware provides authentication utilities for Huma operations
type HumaAuthMiddleware struct {
	jwtValidator JWTValidator
	policy       CapabilityChecker
}

// NewHumaAuthMiddleware creates a new Huma authentication middleware
func NewHumaAuthMiddleware(validator JWTValidator, policy CapabilityChecker) *HumaAuthMiddleware {
	return &HumaAuthMiddleware{
		jwtValidator: validator,
		policy:       policy,
	}
}

// RequireAuth resolves the caller or fails with 401
func (m *HumaAuthMiddleware) RequireAuth(ctx context.Context, headers AuthHeaders) (*models.AuthenticatedUser, error) {
	token := headers.Token()
	if token == "" {
		return nil, huma.Error401Unauthorized("Authentication required")
	}

	user, err := m.jwtValidator.ValidateJWT(ctx, token)
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid authentication token")
	}

	return user, nil
}

// RequireCapability resolves the caller and checks the policy, failing with 401 or 403
func (m *HumaAuthMiddleware) RequireCapability(ctx context.Context, headers AuthHeaders, capability models.Capability) (*models.AuthenticatedUser, error) {
	user, err := m.RequireAuth(ctx, headers)
	if err != nil {
		return nil, err
	}

	if !m.policy.Can(user.Role, capability) {
		return nil, huma.Error403Forbidden("Insufficient permissions")
	}

	return user, nil
}

// Can reports whether the already resolved user holds capability
func (m *HumaAuthMiddleware) Can(user *models.AuthenticatedUser, capability models.Capability) bool {
	return user != nil && m.policy.Can(user.Role, capability)
}
