package middleware

import (
	"errors"
	"net/http"
	"strings"

	"loot-tracker/internal/auth/models"
	pkgMiddleware "loot-tracker/pkg/middleware"
)

// ErrNoToken is returned when an upgrade request carries no session token
var ErrNoToken = errors.New("authentication required")

// WebSocketAuthMiddleware authenticates upgrade requests. Browsers cannot set headers on
// websocket handshakes, so the token is also accepted as the token query parameter.
type WebSocketAuthMiddleware struct {
	validator pkgMiddleware.JWTValidator
}

// NewWebSocketAuthMiddleware creates a new WebSocket authentication middleware
func NewWebSocketAuthMiddleware(validator pkgMiddleware.JWTValidator) *WebSocketAuthMiddleware {
	return &WebSocketAuthMiddleware{validator: validator}
}

// AuthenticateConnection resolves the caller of an upgrade request
func (m *WebSocketAuthMiddleware) AuthenticateConnection(r *http.Request) (*models.AuthenticatedUser, error) {
	token := pkgMiddleware.AuthHeaders{
		AuthToken:     r.Header.Get("x-auth-token"),
		Authorization: r.Header.Get("Authorization"),
	}.Token()
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if token == "" {
		return nil, ErrNoToken
	}
	return m.validator.ValidateJWT(r.Context(), token)
}
