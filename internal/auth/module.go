package auth

import (
	"context"
	"fmt"
	"time"

	"loot-tracker/internal/auth/routes"
	"loot-tracker/internal/auth/services"
	"loot-tracker/pkg/config"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"

	"github.com/danielgtaylor/huma/v2"
)

// Module represents the auth module
type Module struct {
	*module.BaseModule
	authService    *services.AuthService
	authMiddleware *middleware.HumaAuthMiddleware
	limiter        *middleware.RateLimiter
}

// New creates the auth module. users is the users repository.
func New(mongodb *database.MongoDB, redis *database.Redis, users services.UserStore) (*Module, error) {
	policy, err := services.NewMongoPolicy(mongodb.Client, mongodb.Database.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy: %w", err)
	}

	tokens := services.NewTokenService(config.GetJWTSecret(), config.GetJWTTTL())
	authService := services.NewAuthService(users, tokens, policy)

	limiter := middleware.NewRateLimiter(
		float64(config.GetIntEnv("LOGIN_RATE_PER_SECOND", 1)),
		config.GetIntEnv("LOGIN_RATE_BURST", 5),
	)

	return &Module{
		BaseModule:     module.NewBaseModule("auth", mongodb, redis),
		authService:    authService,
		authMiddleware: middleware.NewHumaAuthMiddleware(authService, policy),
		limiter:        limiter,
	}, nil
}

// RegisterUnifiedRoutes registers routes on the shared Huma API
func (m *Module) RegisterUnifiedRoutes(api huma.API, basePath string) {
	routes.RegisterAuthRoutes(api, basePath, m.authService, m.authMiddleware, m.limiter)
}

// StartBackgroundTasks drops idle rate limiter buckets until the module stops
func (m *Module) StartBackgroundTasks(ctx context.Context) {
	m.limiter.StartCleanup(10*time.Minute, m.StopChannel())
	m.BaseModule.StartBackgroundTasks(ctx)
}

// GetAuthService returns the auth service for other modules
func (m *Module) GetAuthService() *services.AuthService {
	return m.authService
}

// GetMiddleware returns the huma auth middleware shared by every module's routes
func (m *Module) GetMiddleware() *middleware.HumaAuthMiddleware {
	return m.authMiddleware
}

// GetRateLimiter returns the per-client limiter, also used for bids and uploads
func (m *Module) GetRateLimiter() *middleware.RateLimiter {
	return m.limiter
}

var _ module.Module = (*Module)(nil)
