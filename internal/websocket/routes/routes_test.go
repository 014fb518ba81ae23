package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authModels "loot-tracker/internal/auth/models"
	wsMiddleware "loot-tracker/internal/websocket/middleware"
	"loot-tracker/internal/websocket/models"
	"loot-tracker/internal/websocket/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct{}

func (stubValidator) ValidateJWT(ctx context.Context, token string) (*authModels.AuthenticatedUser, error) {
	if token != "good" {
		return nil, errors.New("invalid token")
	}
	return &authModels.AuthenticatedUser{UserID: "u1", Username: "alice", CharacterName: "Alice", Role: authModels.RoleUser}, nil
}

func newLiveServer(t *testing.T, origins ...string) (*httptest.Server, *services.Hub) {
	t.Helper()
	hub := services.NewHub("auction_events")
	handler := LiveHandler(hub, wsMiddleware.NewWebSocketAuthMiddleware(stubValidator{}), NewUpgrader(origins))
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return server, hub
}

func wsURL(server *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + query
}

func TestLiveHandlerRejectsMissingToken(t *testing.T) {
	server, _ := newLiveServer(t)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(server, "?token=bad"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLiveHandlerRelaysBroadcasts(t *testing.T) {
	server, hub := newLiveServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "?token=good"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var welcome models.Message
	require.NoError(t, json.Unmarshal(raw, &welcome))
	assert.Equal(t, models.MessageTypeConnected, welcome.Type)
	assert.NotEmpty(t, welcome.ConnectionID)
	assert.Equal(t, []string{"auction_events"}, welcome.Channels)

	event := []byte(`{"type":"bid_placed","auction_id":"a1","current_price":150}`)
	assert.Equal(t, 1, hub.Broadcast(event))

	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(event), string(raw))

	stats := hub.Stats()
	assert.Equal(t, 1, stats.ActiveConnections)
	assert.Equal(t, int64(1), stats.TotalConnections)
	assert.Equal(t, int64(1), stats.MessagesRelayed)

	connections := hub.Connections()
	require.Len(t, connections, 1)
	assert.Equal(t, "u1", connections[0].UserID)
	assert.Equal(t, "Alice", connections[0].CharacterName)

	hub.Close()
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Stats().ActiveConnections)
}

func TestLiveHandlerHeaderToken(t *testing.T) {
	server, _ := newLiveServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer good")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, ""), header)
	require.NoError(t, err)
	conn.Close()
}

func TestUpgraderCheckOrigin(t *testing.T) {
	upgrader := NewUpgrader([]string{"https://guild.example"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://guild.example", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/auctions/live", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, upgrader.CheckOrigin(r), tt.origin)
	}

	assert.True(t, NewUpgrader([]string{"*"}).CheckOrigin(func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/auctions/live", nil)
		r.Header.Set("Origin", "https://anything.example")
		return r
	}()))
}
