package routes

import (
	"context"
	"net/http"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/users/dto"
	"loot-tracker/internal/users/models"
	"loot-tracker/internal/users/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterUsersRoutes registers user administration routes on a shared API
func RegisterUsersRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	security := []map[string][]string{{"authToken": {}}}

	huma.Register(api, huma.Operation{
		OperationID: "users-list",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List users",
		Tags:        []string{"Users"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListUsersInput) (*dto.ListUsersOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapUsersAdmin); err != nil {
			return nil, err
		}

		page, limit, skip := handlers.Paginate(input.Page, input.Limit, 100)
		filter := models.ListFilter{
			Role:   authModels.Role(input.Role),
			Search: input.Search,
			Skip:   skip,
			Limit:  int64(limit),
		}
		if input.Disabled != "" {
			disabled := input.Disabled == "true"
			filter.Disabled = &disabled
		}

		users, total, err := service.ListUsers(ctx, filter)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}

		out := &dto.ListUsersOutput{}
		out.Body.Users = users
		out.Body.Total = total
		out.Body.Page = page
		out.Body.Limit = limit
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "users-get",
		Method:      http.MethodGet,
		Path:        basePath + "/{user_id}",
		Summary:     "Get a user",
		Tags:        []string{"Users"},
		Security:    security,
	}, func(ctx context.Context, input *dto.UserIDInput) (*dto.UserOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapUsersAdmin); err != nil {
			return nil, err
		}
		id, err := parseID(input.UserID)
		if err != nil {
			return nil, err
		}
		user, err := service.GetUser(ctx, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.UserOutput{Body: *user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "users-set-role",
		Method:      http.MethodPut,
		Path:        basePath + "/{user_id}/role",
		Summary:     "Change a user's role",
		Tags:        []string{"Users"},
		Security:    security,
	}, func(ctx context.Context, input *dto.SetRoleInput) (*dto.UserOutput, error) {
		actor, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapUsersAdmin)
		if err != nil {
			return nil, err
		}
		id, err := parseID(input.UserID)
		if err != nil {
			return nil, err
		}
		user, err := service.SetRole(ctx, actor, id, input.Body.Role)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.UserOutput{Body: *user}, nil
	})

	for _, toggle := range []struct {
		action   string
		disabled bool
	}{{"disable", true}, {"enable", false}} {
		disabled := toggle.disabled
		huma.Register(api, huma.Operation{
			OperationID: "users-" + toggle.action,
			Method:      http.MethodPost,
			Path:        basePath + "/{user_id}/" + toggle.action,
			Summary:     "Set a user's account to " + toggle.action + "d",
			Tags:        []string{"Users"},
			Security:    security,
		}, func(ctx context.Context, input *dto.UserIDInput) (*dto.UserOutput, error) {
			actor, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapUsersAdmin)
			if err != nil {
				return nil, err
			}
			id, err := parseID(input.UserID)
			if err != nil {
				return nil, err
			}
			user, err := service.SetDisabled(ctx, actor, id, disabled)
			if err != nil {
				return nil, apperrors.ToHuma(err)
			}
			return &dto.UserOutput{Body: *user}, nil
		})
	}
}

func parseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, huma.Error404NotFound("user not found")
	}
	return id, nil
}
