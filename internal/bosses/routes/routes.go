package routes

import (
	"context"
	"net/http"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/bosses/dto"
	"loot-tracker/internal/bosses/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterBossesRoutes registers boss catalogue routes on a shared API
func RegisterBossesRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	security := []map[string][]string{{"authToken": {}}}

	huma.Register(api, huma.Operation{
		OperationID: "bosses-list",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List bosses",
		Tags:        []string{"Bosses"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListBossesInput) (*dto.ListBossesOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		bosses, err := service.List(ctx)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.ListBossesOutput{}
		out.Body.Bosses = bosses
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "bosses-get",
		Method:      http.MethodGet,
		Path:        basePath + "/{boss_id}",
		Summary:     "Get a boss",
		Tags:        []string{"Bosses"},
		Security:    security,
	}, func(ctx context.Context, input *dto.BossIDInput) (*dto.BossOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		id, err := primitive.ObjectIDFromHex(input.BossID)
		if err != nil {
			return nil, huma.Error404NotFound("boss not found")
		}
		boss, err := service.Get(ctx, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.BossOutput{Body: *boss}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "bosses-create",
		Method:        http.MethodPost,
		Path:          basePath,
		Summary:       "Add a boss",
		Tags:          []string{"Bosses"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *dto.CreateBossInput) (*dto.BossOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapBossesWrite); err != nil {
			return nil, err
		}
		boss, err := service.Create(ctx, input.Body)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.BossOutput{Body: *boss}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "bosses-update",
		Method:      http.MethodPut,
		Path:        basePath + "/{boss_id}",
		Summary:     "Update a boss",
		Tags:        []string{"Bosses"},
		Security:    security,
	}, func(ctx context.Context, input *dto.UpdateBossInput) (*dto.BossOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapBossesWrite); err != nil {
			return nil, err
		}
		id, err := primitive.ObjectIDFromHex(input.BossID)
		if err != nil {
			return nil, huma.Error404NotFound("boss not found")
		}
		boss, err := service.Update(ctx, id, input.Body)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.BossOutput{Body: *boss}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "bosses-delete",
		Method:        http.MethodDelete,
		Path:          basePath + "/{boss_id}",
		Summary:       "Delete a boss",
		Description:   "Bosses with recorded kills cannot be deleted",
		Tags:          []string{"Bosses"},
		Security:      security,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *dto.BossIDInput) (*struct{}, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapBossesWrite); err != nil {
			return nil, err
		}
		id, err := primitive.ObjectIDFromHex(input.BossID)
		if err != nil {
			return nil, huma.Error404NotFound("boss not found")
		}
		if err := service.Delete(ctx, id); err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return nil, nil
	})
}
