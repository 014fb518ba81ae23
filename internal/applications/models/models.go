package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ApplicationsCollection = "applications"

// Status is the state of an application.
//
//	pending -> approved    the item was resolved to this applicant
//	pending -> rejected    an admin refused it, or the item went to someone else
//	pending -> withdrawn   the applicant took it back or their account was disabled
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// Active reports whether s counts against the one-active-application-per-item rule
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Application is a member's request to receive a dropped item
type Application struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	Username      string             `bson:"username" json:"username"`
	CharacterName string             `bson:"character_name" json:"character_name"`
	KillID        primitive.ObjectID `bson:"kill_id" json:"kill_id"`
	BossName      string             `bson:"boss_name" json:"boss_name"`
	ItemID        string             `bson:"item_id" json:"item_id"`
	ItemName      string             `bson:"item_name" json:"item_name"`
	Status        Status             `bson:"status" json:"status"`
	// Active mirrors Status.Active for the partial unique indexes
	Active     bool       `bson:"active" json:"-"`
	Reason     string     `bson:"reason,omitempty" json:"reason,omitempty"`
	ResolvedBy string     `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

// ListFilter narrows application listings
type ListFilter struct {
	Status Status
	KillID *primitive.ObjectID
	UserID *primitive.ObjectID
	Skip   int64
	Limit  int64
}
