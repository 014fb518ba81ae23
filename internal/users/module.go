package users

import (
	"loot-tracker/internal/users/routes"
	"loot-tracker/internal/users/services"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the users module
type Module struct {
	*module.BaseModule
	repository *services.Repository
	service    *services.Service
	auth       *middleware.HumaAuthMiddleware
}

// New creates the users module. The auth middleware is attached later with SetAuth because
// authentication itself depends on the users repository.
func New(mongodb *database.MongoDB, redis *database.Redis, settings services.SettingsReader) *Module {
	repository := services.NewRepository(mongodb.Database)
	return &Module{
		BaseModule: module.NewBaseModule("users", mongodb, redis),
		repository: repository,
		service:    services.NewService(repository, settings),
	}
}

// SetAuth attaches the auth middleware used by the routes
func (m *Module) SetAuth(auth *middleware.HumaAuthMiddleware) {
	m.auth = auth
}

// RegisterUnifiedRoutes registers routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterUsersRoutes(api, basePath, m.service, m.auth)
}

// GetRepository returns the users repository for authentication and lookups
func (m *Module) GetRepository() *services.Repository {
	return m.repository
}

// GetService returns the users service
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
