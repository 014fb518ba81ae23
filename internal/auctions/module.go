package auctions

import (
	"context"
	"time"

	"loot-tracker/internal/auctions/routes"
	"loot-tracker/internal/auctions/services"
	"loot-tracker/pkg/config"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the auctions module
type Module struct {
	*module.BaseModule
	service *services.Service
	auth    *middleware.HumaAuthMiddleware
	limiter *middleware.RateLimiter
}

// Dependencies are the services of other modules an auction needs
type Dependencies struct {
	Tx       database.TxRunner
	Kills    services.KillStore
	Wallet   services.Wallet
	Settings services.SettingsReader
	Notifier services.Notifier
}

// New creates the auctions module. Events are published on redis when it is set.
func New(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.HumaAuthMiddleware, deps Dependencies) *Module {
	var publisher services.Publisher
	if redis != nil {
		publisher = redis
	}

	service := services.NewService(
		services.NewRepository(mongodb.Database),
		deps.Kills,
		deps.Wallet,
		deps.Tx,
		deps.Settings,
		deps.Notifier,
		publisher,
	)

	limiter := middleware.NewRateLimiter(
		float64(config.GetIntEnv("BID_RATE_PER_SECOND", 2)),
		config.GetIntEnv("BID_RATE_BURST", 5),
	)

	return &Module{
		BaseModule: module.NewBaseModule("auctions", mongodb, redis),
		service:    service,
		auth:       auth,
		limiter:    limiter,
	}
}

// RegisterUnifiedRoutes registers auction routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterAuctionsRoutes(api, basePath, m.service, m.auth, m.limiter)
}

// StartBackgroundTasks drops idle bid limiter buckets until the module stops
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	m.limiter.StartCleanup(10*time.Minute, m.StopChannel())
	m.BaseModule.StartBackgroundTasks(ctx)
}

// GetService returns the auctions service
func (m *Module) GetService() *services.Service {
	return m.service
}

var _ module.Module = (*Module)(nil)
