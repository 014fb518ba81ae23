package models

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType represents the type of a message written by the server itself
type MessageType string

const (
	MessageTypeConnected MessageType = "connected"
	MessageTypeHeartbeat MessageType = "heartbeat"
)

// Message is a server generated frame. Relayed events are written as published.
type Message struct {
	Type         MessageType `json:"type"`
	ConnectionID string      `json:"connection_id,omitempty"`
	Channels     []string    `json:"channels,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Connection represents a live feed subscriber
type Connection struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	CharacterName string          `json:"character_name"`
	Conn          *websocket.Conn `json:"-"`
	Send          chan []byte     `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	LastPing      time.Time       `json:"last_ping"`
	mu            sync.RWMutex
}

// UpdateLastPing records a pong from the client
func (c *Connection) UpdateLastPing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastPing = time.Now()
}

// Info returns a snapshot safe to serialize
func (c *Connection) Info() ConnectionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ConnectionInfo{
		ID:            c.ID,
		UserID:        c.UserID,
		CharacterName: c.CharacterName,
		CreatedAt:     c.CreatedAt,
		LastPing:      c.LastPing,
	}
}

// ConnectionInfo represents public connection information
type ConnectionInfo struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CharacterName string    `json:"character_name"`
	CreatedAt     time.Time `json:"created_at"`
	LastPing      time.Time `json:"last_ping"`
}

// Stats describes the live feed of this instance
type Stats struct {
	ActiveConnections  int       `json:"active_connections"`
	TotalConnections   int64     `json:"total_connections"`
	MessagesRelayed    int64     `json:"messages_relayed"`
	DroppedConnections int64     `json:"dropped_connections"`
	Channels           []string  `json:"channels"`
	LastConnectionTime time.Time `json:"last_connection_time,omitempty"`
}
