package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	authModels "loot-tracker/internal/auth/models"
	wsMiddleware "loot-tracker/internal/websocket/middleware"
	"loot-tracker/internal/websocket/models"
	"loot-tracker/internal/websocket/services"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gorilla/websocket"
)

// NewUpgrader accepts handshakes from requests without an Origin header and from the
// allowed browser origins
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// LiveHandler upgrades authenticated requests and attaches them to hub
func LiveHandler(hub *services.Hub, auth *wsMiddleware.WebSocketAuthMiddleware, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.AuthenticateConnection(r)
		if err != nil {
			message := "Invalid authentication token"
			if errors.Is(err, wsMiddleware.ErrNoToken) {
				message = "Authentication required"
			}
			handlers.ErrorResponse(w, message, http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("Live feed upgrade failed", "user_id", user.UserID, "error", err)
			return
		}
		hub.Serve(conn, user.UserID, user.CharacterName)
	}
}

// StatsOutput represents live feed statistics
type StatsOutput struct {
	Body struct {
		Stats       models.Stats            `json:"stats"`
		Connections []models.ConnectionInfo `json:"connections"`
	}
}

// StatsInput represents the input for live feed statistics
type StatsInput struct {
	middleware.AuthHeaders
}

// RegisterWebSocketRoutes registers the live feed admin view
func RegisterWebSocketRoutes(api huma.API, basePath string, hub *services.Hub, auth *middleware.HumaAuthMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID: "websocket-stats",
		Method:      http.MethodGet,
		Path:        basePath + "/stats",
		Summary:     "Live feed statistics",
		Tags:        []string{"WebSocket Admin"},
		Security:    []map[string][]string{{"authToken": {}}},
	}, func(ctx context.Context, input *StatsInput) (*StatsOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapUsersAdmin); err != nil {
			return nil, err
		}
		out := &StatsOutput{}
		out.Body.Stats = hub.Stats()
		out.Body.Connections = hub.Connections()
		return out, nil
	})
}
