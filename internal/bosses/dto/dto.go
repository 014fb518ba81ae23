package dto

import (
	"loot-tracker/internal/bosses/models"
	"loot-tracker/pkg/middleware"
)

// BossRequest is the body for creating or replacing a boss
type BossRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=64" minLength:"2" maxLength:"64" doc:"Boss name"`
	Level        int    `json:"level" validate:"gte=0,lte=1000" minimum:"0" maximum:"1000" doc:"Boss level"`
	RespawnHours int    `json:"respawn_hours" validate:"gte=0,lte=720" minimum:"0" maximum:"720" doc:"Hours until the boss respawns"`
	Description  string `json:"description,omitempty" validate:"max=500" maxLength:"500" doc:"Notes"`
}

// ListBossesInput represents the input for listing bosses
type ListBossesInput struct {
	middleware.AuthHeaders
}

// BossIDInput represents a path addressed boss
type BossIDInput struct {
	middleware.AuthHeaders
	BossID string `path:"boss_id" doc:"Boss id"`
}

// CreateBossInput represents the input for creating a boss
type CreateBossInput struct {
	middleware.AuthHeaders
	Body BossRequest
}

// UpdateBossInput represents the input for replacing a boss
type UpdateBossInput struct {
	middleware.AuthHeaders
	BossID string `path:"boss_id" doc:"Boss id"`
	Body   BossRequest
}

// BossOutput wraps one boss
type BossOutput struct {
	Body models.Boss
}

// ListBossesOutput wraps the catalogue
type ListBossesOutput struct {
	Body struct {
		Bosses []models.Boss `json:"bosses"`
	}
}
