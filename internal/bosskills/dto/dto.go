package dto

import (
	"time"

	"loot-tracker/internal/bosskills/models"
	"loot-tracker/pkg/middleware"
)

// ItemRequest describes one dropped item
type ItemRequest struct {
	Name          string     `json:"name" validate:"required,max=100" doc:"Item name"`
	Type          string     `json:"type,omitempty" validate:"max=50" doc:"Item category"`
	ApplyDeadline *time.Time `json:"apply_deadline,omitempty" doc:"Overrides the guild's default application window"`
}

// CreateKillRequest is the body of POST /boss-kills
type CreateKillRequest struct {
	BossID      string        `json:"boss_id" validate:"required" doc:"Boss id"`
	KillTime    *time.Time    `json:"kill_time,omitempty" doc:"When the boss died, defaults to now"`
	Items       []ItemRequest `json:"dropped_items" validate:"required,min=1,max=50,dive" doc:"Loot that dropped"`
	Attendees   []string      `json:"attendees" validate:"required,min=1,max=200,dive,required,max=64" doc:"Character names present at the kill"`
	Screenshots []string      `json:"screenshots,omitempty" validate:"max=20,dive,max=256" doc:"Uploaded screenshot paths"`
}

// UpdateKillRequest is the body of PATCH /boss-kills/{kill_id}. Omitted fields are unchanged.
type UpdateKillRequest struct {
	KillTime    *time.Time `json:"kill_time,omitempty" doc:"When the boss died"`
	Attendees   []string   `json:"attendees,omitempty" validate:"omitempty,min=1,max=200,dive,required,max=64" doc:"Replaces the attendee list"`
	Screenshots []string   `json:"screenshots,omitempty" validate:"omitempty,max=20,dive,max=256" doc:"Replaces the screenshot list"`
}

// ListKillsInput represents the input for listing kills
type ListKillsInput struct {
	middleware.AuthHeaders
	Status string `query:"status" doc:"Filter by kill status (pending, assigned, expired)"`
	BossID string `query:"boss_id" doc:"Filter by boss"`
	Page   int    `query:"page" minimum:"1" default:"1" doc:"Page number"`
	Limit  int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Items per page"`
}

// KillIDInput represents a path addressed kill
type KillIDInput struct {
	middleware.AuthHeaders
	KillID string `path:"kill_id" doc:"Boss kill id"`
}

// CreateKillInput represents the input for recording a kill
type CreateKillInput struct {
	middleware.AuthHeaders
	Body CreateKillRequest
}

// UpdateKillInput represents the input for editing a kill
type UpdateKillInput struct {
	middleware.AuthHeaders
	KillID string `path:"kill_id" doc:"Boss kill id"`
	Body   UpdateKillRequest
}

// AuctionableInput represents the input for the auctionable items view
type AuctionableInput struct {
	middleware.AuthHeaders
}

// RequestAttendanceInput represents the input for asking to be added as attendee
type RequestAttendanceInput struct {
	middleware.AuthHeaders
	KillID string `path:"kill_id" doc:"Boss kill id"`
	Body   struct {
		Reason string `json:"reason,omitempty" maxLength:"500" doc:"Context for the reviewer"`
	}
}

// ListAttendanceInput represents the input for listing attendance requests
type ListAttendanceInput struct {
	middleware.AuthHeaders
	Status string `query:"status" doc:"Filter by status (pending, approved, rejected)"`
	KillID string `query:"kill_id" doc:"Filter by boss kill"`
}

// AttendanceIDInput represents a path addressed attendance request
type AttendanceIDInput struct {
	middleware.AuthHeaders
	RequestID string `path:"request_id" doc:"Attendance request id"`
}

// KillOutput wraps one kill
type KillOutput struct {
	Body models.BossKill
}

// ListKillsOutput is a page of kills
type ListKillsOutput struct {
	Body struct {
		Kills []models.BossKill `json:"kills"`
		Total int64             `json:"total"`
		Page  int               `json:"page"`
		Limit int               `json:"limit"`
	}
}

// AuctionableOutput lists items that can be put up for auction
type AuctionableOutput struct {
	Body struct {
		Items []models.AuctionableItem `json:"items"`
		Count int                      `json:"count"`
	}
}

// AttendanceOutput wraps one attendance request
type AttendanceOutput struct {
	Body models.AttendeeRequest
}

// ListAttendanceOutput lists attendance requests
type ListAttendanceOutput struct {
	Body struct {
		Requests []models.AttendeeRequest `json:"requests"`
	}
}
