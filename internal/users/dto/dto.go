package dto

import (
	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/users/models"
	"loot-tracker/pkg/middleware"
)

// ListUsersInput represents the input for listing users
type ListUsersInput struct {
	middleware.AuthHeaders
	Page     int    `query:"page" minimum:"1" default:"1" doc:"Page number"`
	Limit    int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Items per page"`
	Role     string `query:"role" doc:"Filter by role"`
	Disabled string `query:"disabled" doc:"Filter by disabled flag"`
	Search   string `query:"search" maxLength:"64" doc:"Username or character name contains"`
}

// UserIDInput represents a path addressed user
type UserIDInput struct {
	middleware.AuthHeaders
	UserID string `path:"user_id" doc:"User id"`
}

// SetRoleInput represents the input for changing a role
type SetRoleInput struct {
	middleware.AuthHeaders
	UserID string `path:"user_id" doc:"User id"`
	Body   struct {
		Role authModels.Role `json:"role" enum:"admin,moderator,user,guild" doc:"New role"`
	}
}

// UserOutput wraps one user
type UserOutput struct {
	Body models.User
}

// ListUsersOutput is a page of users
type ListUsersOutput struct {
	Body struct {
		Users []models.User `json:"users"`
		Total int64         `json:"total"`
		Page  int           `json:"page"`
		Limit int           `json:"limit"`
	}
}
