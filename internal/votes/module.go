package votes

import (
	"loot-tracker/internal/votes/routes"
	"loot-tracker/internal/votes/services"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the guild votes module
type Module struct {
	*module.BaseModule
	service *services.Service
	auth    *middleware.HumaAuthMiddleware
}

// New creates the votes module
func New(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.HumaAuthMiddleware, notifier services.Notifier) *Module {
	return &Module{
		BaseModule: module.NewBaseModule("votes", mongodb, redis),
		service:    services.NewService(services.NewRepository(mongodb.Database), notifier),
		auth:       auth,
	}
}

// RegisterUnifiedRoutes registers routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterVotesRoutes(api, basePath, m.service, m.auth)
}

// GetService returns the votes service, whose CloseDue the scheduler drives
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
