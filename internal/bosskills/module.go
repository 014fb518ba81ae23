package bosskills

import (
	"loot-tracker/internal/bosskills/routes"
	"loot-tracker/internal/bosskills/services"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the boss kills module
type Module struct {
	*module.BaseModule
	repository *services.Repository
	service    *services.Service
	auth       *middleware.HumaAuthMiddleware
}

// Dependencies are the services of other modules a kill needs
type Dependencies struct {
	Tx       database.TxRunner
	Bosses   services.BossReader
	Settings services.SettingsReader
	Users    services.UserDirectory
	Notifier services.Notifier
	Rewarder services.Rewarder
}

// New creates the boss kills module
func New(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.HumaAuthMiddleware, deps Dependencies) *Module {
	repository := services.NewRepository(mongodb.Database)
	service := services.NewService(
		repository,
		services.NewAttendeeRepository(mongodb.Database),
		deps.Tx,
		deps.Bosses,
		deps.Settings,
		deps.Users,
		deps.Notifier,
	)
	if deps.Rewarder != nil {
		service.SetRewarder(deps.Rewarder)
	}

	return &Module{
		BaseModule: module.NewBaseModule("bosskills", mongodb, redis),
		repository: repository,
		service:    service,
		auth:       auth,
	}
}

// RegisterUnifiedRoutes registers kill, attendance and auctionable item routes
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterBossKillsRoutes(api, basePath, m.service, m.auth)
	routes.RegisterAttendanceRoutes(api, "/attendee-requests", m.service, m.auth)
	routes.RegisterItemsRoutes(api, "/items", m.service, m.auth)
}

// GetRepository returns the kill repository, whose conditional item updates the
// applications and auctions modules build on
func (m *Module) GetRepository() *services.Repository {
	return m.repository
}

// GetService returns the boss kills service
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
