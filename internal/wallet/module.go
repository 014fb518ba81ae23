package wallet

import (
	"loot-tracker/internal/wallet/routes"
	"loot-tracker/internal/wallet/services"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the wallet module
type Module struct {
	*module.BaseModule
	service *services.Service
	auth    *middleware.HumaAuthMiddleware
}

// New creates the wallet module
func New(mongodb *database.MongoDB, redis *database.Redis, tx database.TxRunner, auth *middleware.HumaAuthMiddleware) *Module {
	return &Module{
		BaseModule: module.NewBaseModule("wallet", mongodb, redis),
		service:    services.NewService(services.NewRepository(mongodb.Database), tx),
		auth:       auth,
	}
}

// RegisterUnifiedRoutes registers routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterWalletRoutes(api, basePath, m.service, m.auth)
}

// GetService returns the wallet service for bidding and kill rewards
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
