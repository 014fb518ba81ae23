package bosses

import (
	"loot-tracker/internal/bosses/routes"
	"loot-tracker/internal/bosses/services"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the boss catalogue module
type Module struct {
	*module.BaseModule
	repository *services.Repository
	service    *services.Service
	auth       *middleware.HumaAuthMiddleware
}

// New creates the boss catalogue module
func New(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.HumaAuthMiddleware) *Module {
	repository := services.NewRepository(mongodb.Database)
	return &Module{
		BaseModule: module.NewBaseModule("bosses", mongodb, redis),
		repository: repository,
		service:    services.NewService(repository),
		auth:       auth,
	}
}

// RegisterUnifiedRoutes registers routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterBossesRoutes(api, basePath, m.service, m.auth)
}

// GetService returns the boss catalogue service
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
