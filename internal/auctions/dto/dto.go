package dto

import (
	"time"

	"loot-tracker/internal/auctions/models"
	"loot-tracker/pkg/middleware"
)

// CreateAuctionRequest is the body of POST /auctions
type CreateAuctionRequest struct {
	KillID        string     `json:"kill_id" doc:"Boss kill id"`
	ItemID        string     `json:"item_id" minLength:"1" doc:"Expired item to sell"`
	StartingPrice int64      `json:"starting_price" doc:"Opening price, within the guild's bounds"`
	EndTime       *time.Time `json:"end_time,omitempty" doc:"Closing time, defaults to the guild's auction duration"`
	Currency      string     `json:"currency,omitempty" enum:"diamonds,dkp" doc:"Currency bids are paid in, defaults to diamonds"`
}

// BidRequest is the body of POST /auctions/{auction_id}/bid
type BidRequest struct {
	Amount         int64  `json:"amount" minimum:"1" doc:"Bid amount, must exceed the current price"`
	IdempotencyKey string `json:"idempotency_key,omitempty" maxLength:"128" doc:"Retrying with the same key never charges twice"`
}

// CreateAuctionInput represents the input for opening an auction
type CreateAuctionInput struct {
	middleware.AuthHeaders
	Body CreateAuctionRequest
}

// ListAuctionsInput represents the input for listing auctions
type ListAuctionsInput struct {
	middleware.AuthHeaders
	Status string `query:"status" doc:"Filter by status (active, settling, completed, cancelled)"`
	Page   int    `query:"page" minimum:"1" default:"1" doc:"Page number"`
	Limit  int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Items per page"`
}

// AuctionIDInput represents a path addressed auction
type AuctionIDInput struct {
	middleware.AuthHeaders
	AuctionID string `path:"auction_id" doc:"Auction id"`
}

// BidInput represents the input for bidding
type BidInput struct {
	middleware.AuthHeaders
	AuctionID      string `path:"auction_id" doc:"Auction id"`
	IdempotencyKey string `header:"Idempotency-Key" doc:"Alternative to the body field"`
	Body           BidRequest
}

// PendingCountInput represents the input for the auctionable badge
type PendingCountInput struct {
	middleware.AuthHeaders
}

// AuctionOutput represents one auction
type AuctionOutput struct {
	Body models.Auction
}

// ListAuctionsOutput represents a page of auctions
type ListAuctionsOutput struct {
	Body struct {
		Auctions []models.Auction `json:"auctions"`
		Total    int64            `json:"total"`
		Page     int              `json:"page"`
		Limit    int              `json:"limit"`
	}
}

// BidsOutput represents the bids of an auction
type BidsOutput struct {
	Body struct {
		Bids []models.Bid `json:"bids"`
	}
}

// BidOutput represents an accepted bid
type BidOutput struct {
	Body struct {
		Auction  models.Auction `json:"auction"`
		Bid      models.Bid     `json:"bid"`
		Replayed bool           `json:"replayed"`
	}
}

// PendingCountOutput represents the number of items waiting for an auction
type PendingCountOutput struct {
	Body struct {
		Count int64 `json:"count"`
	}
}
