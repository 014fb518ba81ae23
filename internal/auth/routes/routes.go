package routes

import (
	"context"
	"net/http"

	"loot-tracker/internal/auth/dto"
	"loot-tracker/internal/auth/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterAuthRoutes registers auth routes on a shared API. limiter guards register and login.
func RegisterAuthRoutes(api huma.API, basePath string, authService *services.AuthService, authMiddleware *middleware.HumaAuthMiddleware, limiter *middleware.RateLimiter) {
	var limited huma.Middlewares
	if limiter != nil {
		limited = huma.Middlewares{limiter.Huma(api)}
	}

	huma.Register(api, huma.Operation{
		OperationID:   "auth-register",
		Method:        http.MethodPost,
		Path:          basePath + "/register",
		Summary:       "Register an account",
		Description:   "Create an account. The first account created becomes the guild admin.",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   limited,
	}, func(ctx context.Context, input *dto.RegisterInput) (*dto.SessionOutput, error) {
		session, err := authService.Register(ctx, input.Body)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.SessionOutput{Body: *session}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auth-login",
		Method:      http.MethodPost,
		Path:        basePath + "/login",
		Summary:     "Log in",
		Description: "Exchange credentials for a session token sent back in x-auth-token on later calls",
		Tags:        []string{"Auth"},
		Middlewares: limited,
	}, func(ctx context.Context, input *dto.LoginInput) (*dto.SessionOutput, error) {
		session, err := authService.Login(ctx, input.Body)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.SessionOutput{Body: *session}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auth-me",
		Method:      http.MethodGet,
		Path:        basePath + "/me",
		Summary:     "Current user",
		Description: "Returns the authenticated user and the capabilities of their role",
		Tags:        []string{"Auth"},
		Security:    []map[string][]string{{"authToken": {}}},
	}, func(ctx context.Context, input *dto.MeInput) (*dto.MeOutput, error) {
		user, err := authMiddleware.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		return &dto.MeOutput{Body: authService.Me(user)}, nil
	})
}
