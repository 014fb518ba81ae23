package menus

import (
	"loot-tracker/internal/menus/models"
	"loot-tracker/internal/menus/routes"
	"loot-tracker/internal/menus/services"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module serves the role-filtered navigation
type Module struct {
	*module.BaseModule
	service *services.Service
	auth    *middleware.HumaAuthMiddleware
}

// New creates the menus module
func New(auth *middleware.HumaAuthMiddleware) *Module {
	return &Module{
		BaseModule: module.NewBaseModule("menus", nil, nil),
		service:    services.NewService(models.DefaultNavigation, auth),
		auth:       auth,
	}
}

// RegisterUnifiedRoutes registers routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterMenusRoutes(api, basePath, m.service, m.auth)
}

var _ module.Module = (*Module)(nil)
