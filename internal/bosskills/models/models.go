package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	BossKillsCollection        = "boss_kills"
	AttendeeRequestsCollection = "attendee_requests"
)

// ItemStatus is the lifecycle state of a dropped item.
//
//	pending -> assigned                  approval or manual assignment
//	pending -> processing -> expired     expiration sweep (claim, then flip)
//	expired -> auctioned                 auction created
//	auctioned -> sold                    auction settled with a winner
//	auctioned -> expired                 auction settled without bids or cancelled
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemProcessing ItemStatus = "processing"
	ItemAssigned   ItemStatus = "assigned"
	ItemExpired    ItemStatus = "expired"
	ItemAuctioned  ItemStatus = "auctioned"
	ItemSold       ItemStatus = "sold"
)

// KillStatus summarizes the items of a kill
type KillStatus string

const (
	KillPending  KillStatus = "pending"
	KillAssigned KillStatus = "assigned"
	KillExpired  KillStatus = "expired"
)

// DroppedItem is one item dropped by a kill
type DroppedItem struct {
	ID                 string              `bson:"id" json:"id"`
	Name               string              `bson:"name" json:"name"`
	Type               string              `bson:"type,omitempty" json:"type,omitempty"`
	ApplyDeadline      time.Time           `bson:"apply_deadline" json:"apply_deadline"`
	Status             ItemStatus          `bson:"status" json:"status"`
	FinalRecipient     *primitive.ObjectID `bson:"final_recipient,omitempty" json:"final_recipient,omitempty"`
	FinalRecipientName string              `bson:"final_recipient_name,omitempty" json:"final_recipient_name,omitempty"`
	AssignedAt         *time.Time          `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	AuctionID          *primitive.ObjectID `bson:"auction_id,omitempty" json:"auction_id,omitempty"`
}

// Owned reports whether the item has a final recipient
func (i *DroppedItem) Owned() bool {
	return i.FinalRecipient != nil && !i.FinalRecipient.IsZero()
}

// BossKill is a recorded boss kill and the loot it dropped
type BossKill struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BossID       primitive.ObjectID `bson:"boss_id" json:"boss_id"`
	BossName     string             `bson:"boss_name" json:"boss_name"`
	KillTime     time.Time          `bson:"kill_time" json:"kill_time"`
	DroppedItems []DroppedItem      `bson:"dropped_items" json:"dropped_items"`
	Attendees    []string           `bson:"attendees" json:"attendees"`
	Screenshots  []string           `bson:"screenshots,omitempty" json:"screenshots,omitempty"`
	Status       KillStatus         `bson:"status" json:"status"`
	CreatedBy    string             `bson:"created_by" json:"created_by"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
	Version      int64              `bson:"version" json:"version"`
}

// Item returns the dropped item with id
func (k *BossKill) Item(id string) (*DroppedItem, bool) {
	for i := range k.DroppedItems {
		if k.DroppedItems[i].ID == id {
			return &k.DroppedItems[i], true
		}
	}
	return nil, false
}

// HasAttendee reports whether characterName attended, ignoring case
func (k *BossKill) HasAttendee(characterName string) bool {
	for _, attendee := range k.Attendees {
		if strings.EqualFold(attendee, characterName) {
			return true
		}
	}
	return false
}

// Summarize derives the kill status from its items: pending while any item is open for
// applications, assigned once every item has an owner, expired otherwise.
func Summarize(items []DroppedItem) KillStatus {
	if len(items) == 0 {
		return KillExpired
	}
	owned := 0
	for i := range items {
		switch items[i].Status {
		case ItemPending, ItemProcessing:
			return KillPending
		case ItemAssigned, ItemSold:
			owned++
		}
	}
	if owned == len(items) {
		return KillAssigned
	}
	return KillExpired
}

// ListFilter narrows kill listings
type ListFilter struct {
	Status KillStatus
	BossID *primitive.ObjectID
	Skip   int64
	Limit  int64
}

// ItemTransition is a compare-and-swap of one item's status. Set and Unset name item
// fields (without the dropped_items prefix).
type ItemTransition struct {
	KillID primitive.ObjectID
	ItemID string
	From   []ItemStatus
	To     ItemStatus
	Set    map[string]interface{}
	Unset  []string
}

// AuctionableItem is an expired, unowned item with no live auction
type AuctionableItem struct {
	KillID        primitive.ObjectID `bson:"kill_id" json:"kill_id"`
	BossName      string             `bson:"boss_name" json:"boss_name"`
	KillTime      time.Time          `bson:"kill_time" json:"kill_time"`
	ItemID        string             `bson:"item_id" json:"item_id"`
	ItemName      string             `bson:"item_name" json:"item_name"`
	ItemType      string             `bson:"item_type,omitempty" json:"item_type,omitempty"`
	ApplyDeadline time.Time          `bson:"apply_deadline" json:"apply_deadline"`
}

// AttendeeStatus is the state of an attendance request
type AttendeeStatus string

const (
	AttendeePending  AttendeeStatus = "pending"
	AttendeeApproved AttendeeStatus = "approved"
	AttendeeRejected AttendeeStatus = "rejected"
)

// AttendeeRequest asks an admin to add the requester's character to a kill's attendees
type AttendeeRequest struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	KillID        primitive.ObjectID `bson:"kill_id" json:"kill_id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	CharacterName string             `bson:"character_name" json:"character_name"`
	Reason        string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Status        AttendeeStatus     `bson:"status" json:"status"`
	ResolvedBy    string             `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time         `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}
