package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const VotesCollection = "votes"

// Status is the lifecycle state of a vote
type Status string

const (
	StatusOpen    Status = "open"
	StatusClosing Status = "closing"
	StatusClosed  Status = "closed"
)

// Option is one choice and its running tally
type Option struct {
	ID    string `json:"id" bson:"id"`
	Label string `json:"label" bson:"label"`
	Votes int    `json:"votes" bson:"votes"`
}

// Vote is a guild poll with a deadline. Each member casts at most one ballot.
type Vote struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Title         string               `json:"title" bson:"title"`
	Description   string               `json:"description,omitempty" bson:"description,omitempty"`
	Options       []Option             `json:"options" bson:"options"`
	Voters        []primitive.ObjectID `json:"-" bson:"voters"`
	VoterCount    int                  `json:"voter_count" bson:"voter_count"`
	Deadline      time.Time            `json:"deadline" bson:"deadline"`
	Status        Status               `json:"status" bson:"status"`
	Winners       []string             `json:"winners,omitempty" bson:"winners,omitempty"`
	CreatedBy     primitive.ObjectID   `json:"created_by" bson:"created_by"`
	CreatedByName string               `json:"created_by_name" bson:"created_by_name"`
	ClaimedAt     *time.Time           `json:"-" bson:"claimed_at,omitempty"`
	ClosedAt      *time.Time           `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" bson:"updated_at"`
}

// Option returns the option with id
func (v *Vote) Option(id string) (*Option, bool) {
	for i := range v.Options {
		if v.Options[i].ID == id {
			return &v.Options[i], true
		}
	}
	return nil, false
}

// HasVoted reports whether user already cast a ballot
func (v *Vote) HasVoted(user primitive.ObjectID) bool {
	for _, voter := range v.Voters {
		if voter == user {
			return true
		}
	}
	return false
}

// Tally returns the ids of the options with the most votes. Ties return every leader;
// a vote nobody took part in has no winner.
func (v *Vote) Tally() []string {
	best := 0
	var winners []string
	for _, option := range v.Options {
		switch {
		case option.Votes == 0:
		case option.Votes > best:
			best = option.Votes
			winners = []string{option.ID}
		case option.Votes == best:
			winners = append(winners, option.ID)
		}
	}
	return winners
}

// ListFilter narrows vote listings
type ListFilter struct {
	Status Status
	Skip   int64
	Limit  int64
}
