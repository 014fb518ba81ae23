package scheduler

import (
	"context"
	"log/slog"

	"loot-tracker/internal/scheduler/routes"
	"loot-tracker/internal/scheduler/services"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module runs the system sweeps on their schedules
type Module struct {
	*module.BaseModule
	engine *services.Engine
	auth   *middleware.HumaAuthMiddleware
}

// New creates the scheduler module and registers the system jobs for sweepers
func New(mongodb *database.MongoDB, redis *database.Redis, auth *middleware.HumaAuthMiddleware, sweepers services.Sweepers) (*Module, error) {
	var locker services.Locker
	if redis != nil {
		locker = redis
	}
	engine := services.NewEngine(services.NewRepository(mongodb.Database), locker)
	for _, job := range services.SystemJobs(sweepers) {
		if err := engine.Register(job); err != nil {
			return nil, err
		}
	}

	return &Module{
		BaseModule: module.NewBaseModule("scheduler", mongodb, redis),
		engine:     engine,
		auth:       auth,
	}, nil
}

// RegisterUnifiedRoutes registers the job admin routes
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterSchedulerRoutes(api, basePath, m.engine, m.auth)
}

// StartBackgroundTasks fires jobs until the module is stopped
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	slog.Info("Starting scheduler background tasks", "module", m.Name())
	m.engine.Start()
	defer m.engine.Stop()

	m.BaseModule.StartBackgroundTasks(ctx)
}

// GetEngine returns the job engine
func (m *Module) GetEngine() *services.Engine {
	return m.engine
}

var _ module.Module = (*Module)(nil)
