package dto

import (
	"loot-tracker/internal/auth/models"
	"loot-tracker/pkg/middleware"
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Username      string `json:"username" validate:"required,min=3,max=32,alphanum" minLength:"3" maxLength:"32" doc:"Login name"`
	Password      string `json:"password" validate:"required,min=8,max=72" minLength:"8" maxLength:"72" doc:"Account password"`
	CharacterName string `json:"character_name" validate:"required,min=2,max=64" minLength:"2" maxLength:"64" doc:"In-game character name used for attendance"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required" doc:"Login name"`
	Password string `json:"password" validate:"required" doc:"Account password"`
}

// RegisterInput represents the input for account registration
type RegisterInput struct {
	Body RegisterRequest
}

// LoginInput represents the input for login
type LoginInput struct {
	Body LoginRequest
}

// MeInput represents the input for the current user endpoint
type MeInput struct {
	middleware.AuthHeaders
}

// SessionOutput is returned by register and login
type SessionOutput struct {
	Body models.Session
}

// MeResponse describes the calling user and what they may do
type MeResponse struct {
	User         models.AuthenticatedUser `json:"user"`
	Capabilities []models.Capability      `json:"capabilities"`
}

// MeOutput represents the current user response
type MeOutput struct {
	Body MeResponse
}
