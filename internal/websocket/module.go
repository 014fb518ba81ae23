package websocket

import (
	"context"

	auctionModels "loot-tracker/internal/auctions/models"
	wsMiddleware "loot-tracker/internal/websocket/middleware"
	"loot-tracker/internal/websocket/routes"
	"loot-tracker/internal/websocket/services"
	"loot-tracker/pkg/config"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
)

// Module represents the live auction feed
type Module struct {
	*module.BaseModule
	hub    *services.Hub
	wsAuth *wsMiddleware.WebSocketAuthMiddleware
	auth   *middleware.HumaAuthMiddleware
}

// New creates the live feed module. validator authenticates upgrade requests.
func New(mongodb *database.MongoDB, redis *database.Redis, validator middleware.JWTValidator, auth *middleware.HumaAuthMiddleware) *Module {
	return &Module{
		BaseModule: module.NewBaseModule("websocket", mongodb, redis),
		hub:        services.NewHub(auctionModels.EventsChannel),
		wsAuth:     wsMiddleware.NewWebSocketAuthMiddleware(validator),
		auth:       auth,
	}
}

// Routes mounts the websocket endpoint, which cannot go through huma
func (m *Module) Routes(r chi.Router) {
	r.Get("/auctions/live", routes.LiveHandler(m.hub, m.wsAuth, routes.NewUpgrader(config.GetCORSOrigins())))
}

// RegisterUnifiedRoutes registers the admin statistics view
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterWebSocketRoutes(api, basePath, m.hub, m.auth)
}

// StartBackgroundTasks relays Redis events to subscribers until the module stops
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	if m.Redis() == nil {
		m.BaseModule.StartBackgroundTasks(ctx)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
		case <-m.StopChannel():
			cancel()
		}
	}()

	services.NewRelay(m.hub, m.Redis()).Run(ctx)
}

// Stop disconnects subscribers and stops the relay
func (m *Module) Stop() {
	m.hub.Close()
	m.BaseModule.Stop()
}

// GetHub returns the connection hub
func (m *Module) GetHub() *services.Hub {
	return m.hub
}

var _ module.Module = (*Module)(nil)
