package routes

import (
	"context"
	"net/http"

	"loot-tracker/internal/menus/dto"
	"loot-tracker/internal/menus/services"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterMenusRoutes registers the navigation route on a shared API
func RegisterMenusRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID: "menus-get",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "Get navigation",
		Description: "Menu entries the caller's role may use",
		Tags:        []string{"Menus"},
		Security:    []map[string][]string{{"authToken": {}}},
	}, func(ctx context.Context, input *dto.MenuInput) (*dto.MenuOutput, error) {
		user, err := auth.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		out := &dto.MenuOutput{}
		out.Body.Role = string(user.Role)
		out.Body.Navigation = service.ForUser(user)
		return out, nil
	})
}
