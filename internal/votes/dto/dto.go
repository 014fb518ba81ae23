package dto

import (
	"time"

	"loot-tracker/internal/votes/models"
	"loot-tracker/pkg/middleware"
)

// CreateVoteRequest is the body of POST /votes
type CreateVoteRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=120" doc:"Question put to the guild"`
	Description string     `json:"description,omitempty" validate:"max=1000" doc:"Context for voters"`
	Options     []string   `json:"options" validate:"required,min=2,max=10,dive,required,max=100" doc:"Choices, in display order"`
	Deadline    *time.Time `json:"deadline,omitempty" doc:"When voting closes, defaults to three days from now"`
}

// CreateVoteInput represents the input for opening a vote
type CreateVoteInput struct {
	middleware.AuthHeaders
	Body CreateVoteRequest
}

// CastInput represents the input for casting a ballot
type CastInput struct {
	middleware.AuthHeaders
	VoteID string `path:"vote_id" doc:"Vote id"`
	Body   struct {
		OptionID string `json:"option_id" minLength:"1" doc:"Chosen option"`
	}
}

// VoteIDInput represents a path addressed vote
type VoteIDInput struct {
	middleware.AuthHeaders
	VoteID string `path:"vote_id" doc:"Vote id"`
}

// ListVotesInput represents the input for listing votes
type ListVotesInput struct {
	middleware.AuthHeaders
	Status string `query:"status" enum:"open,closing,closed" doc:"Filter by status"`
	Page   int    `query:"page" minimum:"1" default:"1" doc:"Page number"`
	Limit  int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Items per page"`
}

// VoteResponse is a vote as seen by the caller
type VoteResponse struct {
	models.Vote
	HasVoted bool `json:"has_voted"`
}

// VoteOutput wraps one vote
type VoteOutput struct {
	Body VoteResponse
}

// ListVotesOutput is a page of votes
type ListVotesOutput struct {
	Body struct {
		Votes []VoteResponse `json:"votes"`
		Total int64          `json:"total"`
		Page  int            `json:"page"`
		Limit int            `json:"limit"`
	}
}
