package services

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"loot-tracker/internal/websocket/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Hub fans published payloads out to every connected subscriber. A subscriber whose send
// buffer is full is dropped rather than slowing everyone else down.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*models.Connection
	channels    []string
	stats       models.Stats
	statsMu     sync.Mutex
}

// NewHub creates a hub relaying channels
func NewHub(channels ...string) *Hub {
	return &Hub{
		connections: make(map[string]*models.Connection),
		channels:    channels,
	}
}

// Serve registers conn and pumps messages until the client goes away. It returns once
// the connection is registered and the welcome frame is queued.
func (h *Hub) Serve(conn *websocket.Conn, userID, characterName string) *models.Connection {
	now := time.Now()
	c := &models.Connection{
		ID:            uuid.New().String(),
		UserID:        userID,
		CharacterName: characterName,
		Conn:          conn,
		Send:          make(chan []byte, sendBuffer),
		CreatedAt:     now,
		LastPing:      now,
	}

	h.statsMu.Lock()
	h.stats.TotalConnections++
	h.stats.LastConnectionTime = now
	h.statsMu.Unlock()

	slog.Info("Live feed connection added", "connection_id", c.ID, "user_id", userID)

	welcome, _ := json.Marshal(models.Message{
		Type:         models.MessageTypeConnected,
		ConnectionID: c.ID,
		Channels:     h.channels,
		Timestamp:    now,
	})
	c.Send <- welcome

	h.mu.Lock()
	h.connections[c.ID] = c
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
	return c
}

// Broadcast queues payload for every connection
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.RLock()
	var slow []*models.Connection
	delivered := 0
	for _, c := range h.connections {
		select {
		case c.Send <- payload:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("Dropping slow live feed connection", "connection_id", c.ID)
		h.remove(c)
		h.statsMu.Lock()
		h.stats.DroppedConnections++
		h.statsMu.Unlock()
	}

	h.statsMu.Lock()
	h.stats.MessagesRelayed++
	h.statsMu.Unlock()
	return delivered
}

// remove unregisters c and closes its send channel once
func (h *Hub) remove(c *models.Connection) {
	h.mu.Lock()
	_, ok := h.connections[c.ID]
	if ok {
		delete(h.connections, c.ID)
		close(c.Send)
	}
	h.mu.Unlock()

	if ok {
		slog.Info("Live feed connection removed", "connection_id", c.ID, "user_id", c.UserID)
	}
}

// Connections lists the current subscribers
func (h *Hub) Connections() []models.ConnectionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.ConnectionInfo, 0, len(h.connections))
	for _, c := range h.connections {
		out = append(out, c.Info())
	}
	return out
}

// Stats returns a snapshot of the hub's counters
func (h *Hub) Stats() models.Stats {
	h.mu.RLock()
	active := len(h.connections)
	h.mu.RUnlock()

	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	stats := h.stats
	stats.ActiveConnections = active
	stats.Channels = h.channels
	return stats
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*models.Connection, 0, len(h.connections))
	for _, c := range h.connections {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.remove(c)
	}
}

func (h *Hub) writePump(c *models.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.remove(c)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump only watches for pongs and close frames; the feed is one way
func (h *Hub) readPump(c *models.Connection) {
	defer h.remove(c)

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.UpdateLastPing()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("Live feed connection error", "connection_id", c.ID, "error", err)
			}
			return
		}
	}
}
