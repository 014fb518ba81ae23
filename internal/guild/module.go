package guild

import (
	"context"
	"fmt"
	"log/slog"

	"loot-tracker/internal/guild/routes"
	"loot-tracker/internal/guild/services"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the guild settings module
type Module struct {
	*module.BaseModule
	service *services.Service
	auth    *middleware.HumaAuthMiddleware
}

// New creates the guild settings module. Settings are read by users and auth, so the
// module is built before them and receives the auth middleware through SetAuth.
func New(mongodb *database.MongoDB, redis *database.Redis) *Module {
	return &Module{
		BaseModule: module.NewBaseModule("guild", mongodb, redis),
		service:    services.NewService(services.NewRepository(mongodb.Database)),
	}
}

// SetAuth attaches the auth middleware used by the routes
func (m *Module) SetAuth(auth *middleware.HumaAuthMiddleware) {
	m.auth = auth
}

// Initialize seeds the default settings
func (m *Module) Initialize(ctx context.Context) error {
	if err := m.service.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize guild settings: %w", err)
	}
	slog.Info("Guild settings initialized")
	return nil
}

// RegisterUnifiedRoutes registers routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterGuildRoutes(api, basePath, m.service, m.auth)
}

// GetService returns the guild settings service for use by other modules
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
