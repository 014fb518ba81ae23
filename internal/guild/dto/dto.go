package dto

import (
	"loot-tracker/internal/guild/models"
	"loot-tracker/pkg/middleware"
)

// ListSettingsInput represents the input for listing guild settings
type ListSettingsInput struct {
	middleware.AuthHeaders
}

// GetSettingInput represents the input for getting a specific guild setting
type GetSettingInput struct {
	middleware.AuthHeaders
	Key string `path:"key" doc:"Setting key"`
}

// UpdateSettingInput represents the input for creating or updating a guild setting
type UpdateSettingInput struct {
	middleware.AuthHeaders
	Key  string `path:"key" doc:"Setting key"`
	Body struct {
		Value       interface{} `json:"value" required:"true" doc:"Setting value (string, number or boolean)"`
		Description string      `json:"description,omitempty" maxLength:"500" doc:"What this setting controls"`
	}
}

// DeleteSettingInput represents the input for deleting a guild setting
type DeleteSettingInput struct {
	middleware.AuthHeaders
	Key string `path:"key" doc:"Setting key"`
}

// SettingOutput wraps one setting
type SettingOutput struct {
	Body models.Setting
}

// ListSettingsOutput wraps the stored settings
type ListSettingsOutput struct {
	Body struct {
		Settings []models.Setting `json:"settings"`
	}
}
