package dto

import (
	"loot-tracker/internal/menus/models"
	"loot-tracker/pkg/middleware"
)

// MenuInput represents the input for fetching the navigation
type MenuInput struct {
	middleware.AuthHeaders
}

// MenuOutput is the caller's navigation
type MenuOutput struct {
	Body struct {
		Role       string                   `json:"role"`
		Navigation []models.NavigationGroup `json:"navigation"`
	}
}
