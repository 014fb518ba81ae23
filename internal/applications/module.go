package applications

import (
	"loot-tracker/internal/applications/routes"
	"loot-tracker/internal/applications/services"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the applications module
type Module struct {
	*module.BaseModule
	service *services.Service
	auth    *middleware.HumaAuthMiddleware
}

// New creates the applications module. kills is the boss kill repository whose item
// CAS approval builds on.
func New(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.HumaAuthMiddleware, tx database.TxRunner, kills services.KillStore, users services.UserReader, notifier services.Notifier) *Module {
	service := services.NewService(services.NewRepository(mongodb.Database), kills, users, tx, notifier)
	return &Module{
		BaseModule: module.NewBaseModule("applications", mongodb, redis),
		service:    service,
		auth:       auth,
	}
}

// RegisterUnifiedRoutes registers application routes and manual assignment under /boss-kills
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterApplicationsRoutes(api, basePath, m.service, m.auth)
	routes.RegisterAssignmentRoutes(api, "/boss-kills", m.service, m.auth)
}

// GetService returns the applications service
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
