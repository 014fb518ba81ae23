package routes

import (
	"context"
	"net/http"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/guild/dto"
	"loot-tracker/internal/guild/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterGuildRoutes registers guild settings routes on a shared API
func RegisterGuildRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	security := []map[string][]string{{"authToken": {}}}

	huma.Register(api, huma.Operation{
		OperationID: "guild-list-settings",
		Method:      http.MethodGet,
		Path:        basePath + "/settings",
		Summary:     "List guild settings",
		Tags:        []string{"Guild"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListSettingsInput) (*dto.ListSettingsOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		settings, err := service.List(ctx)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.ListSettingsOutput{}
		out.Body.Settings = settings
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "guild-get-setting",
		Method:      http.MethodGet,
		Path:        basePath + "/settings/{key}",
		Summary:     "Get a guild setting",
		Tags:        []string{"Guild"},
		Security:    security,
	}, func(ctx context.Context, input *dto.GetSettingInput) (*dto.SettingOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		setting, err := service.Get(ctx, input.Key)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.SettingOutput{Body: *setting}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "guild-update-setting",
		Method:      http.MethodPut,
		Path:        basePath + "/settings/{key}",
		Summary:     "Create or update a guild setting",
		Tags:        []string{"Guild"},
		Security:    security,
	}, func(ctx context.Context, input *dto.UpdateSettingInput) (*dto.SettingOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapGuildSettings)
		if err != nil {
			return nil, err
		}
		setting, err := service.Update(ctx, input.Key, input.Body.Value, input.Body.Description, user.UserID)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.SettingOutput{Body: *setting}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "guild-delete-setting",
		Method:        http.MethodDelete,
		Path:          basePath + "/settings/{key}",
		Summary:       "Delete a guild setting",
		Description:   "Deleting a lifecycle setting restores its default",
		Tags:          []string{"Guild"},
		Security:      security,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *dto.DeleteSettingInput) (*struct{}, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapGuildSettings); err != nil {
			return nil, err
		}
		if err := service.Delete(ctx, input.Key); err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return nil, nil
	})
}
