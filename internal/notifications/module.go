package notifications

import (
	"context"
	"log/slog"
	"time"

	"loot-tracker/internal/notifications/routes"
	"loot-tracker/internal/notifications/services"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the notifications module
type Module struct {
	*module.BaseModule
	service *services.Service
	auth    *middleware.HumaAuthMiddleware
}

// New creates a new notifications module instance
func New(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.HumaAuthMiddleware) *Module {
	return &Module{
		BaseModule: module.NewBaseModule("notifications", mongodb, redis),
		service:    services.NewService(services.NewRepository(mongodb.Database)),
		auth:       auth,
	}
}

// RegisterUnifiedRoutes registers routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterNotificationsRoutes(api, basePath, m.service, m.auth)
}

// StartBackgroundTasks runs the daily cleanup of expired and old read notifications
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.StopChannel():
			return
		case <-ticker.C:
			count, err := m.service.Cleanup(ctx)
			if err != nil {
				slog.Error("Failed to clean up notifications", "error", err)
			} else if count > 0 {
				slog.Info("Cleaned up notifications", "count", count)
			}
		}
	}
}

// GetService returns the notifications service other modules send through
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
