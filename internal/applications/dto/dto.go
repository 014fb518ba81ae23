package dto

import (
	"loot-tracker/internal/applications/models"
	killModels "loot-tracker/internal/bosskills/models"
	"loot-tracker/pkg/middleware"
)

// SubmitRequest is the body of POST /applications
type SubmitRequest struct {
	KillID string `json:"kill_id" doc:"Boss kill id"`
	ItemID string `json:"item_id" minLength:"1" doc:"Dropped item id"`
	Reason string `json:"reason,omitempty" maxLength:"500" doc:"Why you should get the item"`
}

// SubmitInput represents the input for applying for an item
type SubmitInput struct {
	middleware.AuthHeaders
	Body SubmitRequest
}

// ListApplicationsInput represents the input for listing applications
type ListApplicationsInput struct {
	middleware.AuthHeaders
	Status string `query:"status" doc:"Filter by status (pending, approved, rejected, withdrawn)"`
	KillID string `query:"kill_id" doc:"Filter by boss kill"`
	Page   int    `query:"page" minimum:"1" default:"1" doc:"Page number"`
	Limit  int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Items per page"`
}

// ApplicationIDInput represents a path addressed application
type ApplicationIDInput struct {
	middleware.AuthHeaders
	ApplicationID string `path:"application_id" doc:"Application id"`
}

// AssignRequest is the body of PUT /boss-kills/{kill_id}
type AssignRequest struct {
	ItemID         string `json:"item_id" minLength:"1" doc:"Dropped item id"`
	FinalRecipient string `json:"final_recipient" doc:"User id receiving the item"`
}

// AssignInput represents the input for assigning an item by hand
type AssignInput struct {
	middleware.AuthHeaders
	KillID string `path:"kill_id" doc:"Boss kill id"`
	Body   AssignRequest
}

// ApplicationOutput represents one application
type ApplicationOutput struct {
	Body models.Application
}

// ListApplicationsOutput represents a page of applications
type ListApplicationsOutput struct {
	Body struct {
		Applications []models.Application `json:"applications"`
		Total        int64                `json:"total"`
		Page         int                  `json:"page"`
		Limit        int                  `json:"limit"`
	}
}

// ResolveResponse describes a resolved item
type ResolveResponse struct {
	Application *models.Application    `json:"application,omitempty"`
	Kill        killModels.BossKill    `json:"kill"`
	Item        killModels.DroppedItem `json:"item"`
	Rejected    []models.Application   `json:"rejected"`
}

// ResolveOutput represents the result of an approval or manual assignment
type ResolveOutput struct {
	Body ResolveResponse
}
