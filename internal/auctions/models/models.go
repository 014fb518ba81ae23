package models

import (
	"time"

	walletModels "loot-tracker/internal/wallet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AuctionsCollection = "auctions"
	BidsCollection     = "bids"

	// EventsChannel is the Redis channel auction events are published on
	EventsChannel = "auction_events"
)

// Status is the lifecycle state of an auction.
//
//	active -> settling -> completed   settlement sweep
//	active -> cancelled               cancelled by an administrator
type Status string

const (
	StatusActive    Status = "active"
	StatusSettling  Status = "settling"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Open reports whether the auction still holds its item
func (s Status) Open() bool {
	return s == StatusActive || s == StatusSettling
}

// Auction sells one expired item for guild currency
type Auction struct {
	ID                primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	KillID            primitive.ObjectID    `bson:"kill_id" json:"kill_id"`
	ItemID            string                `bson:"item_id" json:"item_id"`
	ItemName          string                `bson:"item_name" json:"item_name"`
	BossName          string                `bson:"boss_name" json:"boss_name"`
	Currency          walletModels.Currency `bson:"currency" json:"currency"`
	StartingPrice     int64                 `bson:"starting_price" json:"starting_price"`
	CurrentPrice      int64                 `bson:"current_price" json:"current_price"`
	EndTime           time.Time             `bson:"end_time" json:"end_time"`
	CreatedBy         string                `bson:"created_by" json:"created_by"`
	HighestBidder     *primitive.ObjectID   `bson:"highest_bidder,omitempty" json:"highest_bidder,omitempty"`
	HighestBidderName string                `bson:"highest_bidder_name,omitempty" json:"highest_bidder_name,omitempty"`
	HighestBidID      *primitive.ObjectID   `bson:"highest_bid_id,omitempty" json:"-"`
	BidCount          int                   `bson:"bid_count" json:"bid_count"`
	Status            Status                `bson:"status" json:"status"`
	// Open mirrors Status.Open for the one-open-auction-per-item index
	Open       bool                `bson:"open" json:"-"`
	ClaimedAt  *time.Time          `bson:"claimed_at,omitempty" json:"-"`
	Winner     *primitive.ObjectID `bson:"winner,omitempty" json:"winner,omitempty"`
	WinnerName string              `bson:"winner_name,omitempty" json:"winner_name,omitempty"`
	FinalPrice int64               `bson:"final_price,omitempty" json:"final_price,omitempty"`
	SettledAt  *time.Time          `bson:"settled_at,omitempty" json:"settled_at,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updated_at"`
}

// Bid is an accepted bid
type Bid struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuctionID      primitive.ObjectID `bson:"auction_id" json:"auction_id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	Username       string             `bson:"username" json:"username"`
	Amount         int64              `bson:"amount" json:"amount"`
	IdempotencyKey string             `bson:"idempotency_key,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// BidUpdate is a conditional raise of an auction's price
type BidUpdate struct {
	AuctionID     primitive.ObjectID
	ExpectedPrice int64
	Amount        int64
	BidID         primitive.ObjectID
	Bidder        primitive.ObjectID
	BidderName    string
}

// ListFilter narrows auction listings
type ListFilter struct {
	Status Status
	Skip   int64
	Limit  int64
}

// EventType names a live feed event
type EventType string

const (
	EventAuctionCreated   EventType = "auction_created"
	EventBidPlaced        EventType = "bid_placed"
	EventAuctionSettled   EventType = "auction_settled"
	EventAuctionCancelled EventType = "auction_cancelled"
)

// Event is published on EventsChannel
type Event struct {
	Type          EventType          `json:"type"`
	AuctionID     primitive.ObjectID `json:"auction_id"`
	ItemName      string             `json:"item_name"`
	CurrentPrice  int64              `json:"current_price"`
	HighestBidder string             `json:"highest_bidder,omitempty"`
	BidCount      int                `json:"bid_count"`
	Status        Status             `json:"status"`
	EndTime       time.Time          `json:"end_time"`
	Timestamp     time.Time          `json:"timestamp"`
}

// NewEvent describes the current state of an auction for websocket subscribers
func NewEvent(kind EventType, a *Auction, at time.Time) Event {
	return Event{
		Type:          kind,
		AuctionID:     a.ID,
		ItemName:      a.ItemName,
		CurrentPrice:  a.CurrentPrice,
		HighestBidder: a.HighestBidderName,
		BidCount:      a.BidCount,
		Status:        a.Status,
		EndTime:       a.EndTime,
		Timestamp:     at,
	}
}
