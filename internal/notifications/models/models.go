package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const NotificationsCollection = "notifications"

// Type identifies what a notification is about
type Type string

const (
	TypeLootOpen            Type = "loot_open"
	TypeApplicationApproved Type = "application_approved"
	TypeApplicationRejected Type = "application_rejected"
	TypeItemsExpired        Type = "items_expired"
	TypeOutbid              Type = "outbid"
	TypeAuctionWon          Type = "auction_won"
	TypeAttendeeRequest     Type = "attendee_request"
	TypeAttendeeResolved    Type = "attendee_resolved"
	TypeVoteClosed          Type = "vote_closed"
)

// Priority orders notifications in the client
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Notification is one in-app message for one recipient
type Notification struct {
	ID             primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	NotificationID string             `json:"id" bson:"notification_id"`
	Recipient      primitive.ObjectID `json:"recipient" bson:"recipient"`
	Type           Type               `json:"type" bson:"type"`
	Priority       Priority           `json:"priority" bson:"priority"`
	Title          string             `json:"title" bson:"title"`
	Message        string             `json:"message" bson:"message"`
	Metadata       map[string]string  `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Read           bool               `json:"read" bson:"read"`
	ReadAt         *time.Time         `json:"read_at,omitempty" bson:"read_at,omitempty"`
	DedupeKey      string             `json:"-" bson:"dedupe_key,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

// Message is what other modules send. Every recipient gets their own row; DedupeKey, when
// set, makes repeated sends of the same event a no-op per recipient.
type Message struct {
	Recipients []primitive.ObjectID
	Type       Type
	Priority   Priority
	Title      string
	Body       string
	Metadata   map[string]string
	DedupeKey  string
}
