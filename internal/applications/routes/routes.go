package routes

import (
	"context"
	"net/http"

	"loot-tracker/internal/applications/dto"
	"loot-tracker/internal/applications/models"
	"loot-tracker/internal/applications/services"
	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var security = []map[string][]string{{"authToken": {}}}

func parseApplicationID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, huma.Error404NotFound("application not found")
	}
	return id, nil
}

func toResolveOutput(result *services.ResolveResult) *dto.ResolveOutput {
	rejected := result.Rejected
	if rejected == nil {
		rejected = []models.Application{}
	}
	return &dto.ResolveOutput{Body: dto.ResolveResponse{
		Application: result.Application,
		Kill:        *result.Kill,
		Item:        result.Item,
		Rejected:    rejected,
	}}
}

// RegisterApplicationsRoutes registers application routes on a shared API
func RegisterApplicationsRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID:   "applications-submit",
		Method:        http.MethodPost,
		Path:          basePath,
		Summary:       "Apply for a dropped item",
		Description:   "Only attendees of the kill may apply, and only while the item is open",
		Tags:          []string{"Applications"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *dto.SubmitInput) (*dto.ApplicationOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapApplicationsSubmit)
		if err != nil {
			return nil, err
		}
		killID, err := primitive.ObjectIDFromHex(input.Body.KillID)
		if err != nil {
			return nil, huma.Error404NotFound("boss kill not found")
		}
		app, err := service.Submit(ctx, user, killID, input.Body.ItemID, input.Body.Reason)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.ApplicationOutput{Body: *app}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "applications-list",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List applications",
		Tags:        []string{"Applications"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListApplicationsInput) (*dto.ListApplicationsOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapApplicationsResolve); err != nil {
			return nil, err
		}
		filter, page, limit, err := listFilter(input)
		if err != nil {
			return nil, err
		}
		apps, total, err := service.List(ctx, filter)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return listOutput(apps, total, page, limit), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "applications-mine",
		Method:      http.MethodGet,
		Path:        basePath + "/mine",
		Summary:     "List my applications",
		Tags:        []string{"Applications"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListApplicationsInput) (*dto.ListApplicationsOutput, error) {
		user, err := auth.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		filter, page, limit, err := listFilter(input)
		if err != nil {
			return nil, err
		}
		apps, total, err := service.Mine(ctx, user, filter)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return listOutput(apps, total, page, limit), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "applications-get",
		Method:      http.MethodGet,
		Path:        basePath + "/{application_id}",
		Summary:     "Get an application",
		Tags:        []string{"Applications"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ApplicationIDInput) (*dto.ApplicationOutput, error) {
		user, err := auth.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		id, err := parseApplicationID(input.ApplicationID)
		if err != nil {
			return nil, err
		}
		app, err := service.Get(ctx, user, auth.Can(user, authModels.CapApplicationsResolve), id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.ApplicationOutput{Body: *app}, nil
	})

	approve := func(ctx context.Context, input *dto.ApplicationIDInput) (*dto.ResolveOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapApplicationsResolve)
		if err != nil {
			return nil, err
		}
		id, err := parseApplicationID(input.ApplicationID)
		if err != nil {
			return nil, err
		}
		result, err := service.Approve(ctx, user, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return toResolveOutput(result), nil
	}

	reject := func(ctx context.Context, input *dto.ApplicationIDInput) (*dto.ApplicationOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapApplicationsResolve)
		if err != nil {
			return nil, err
		}
		id, err := parseApplicationID(input.ApplicationID)
		if err != nil {
			return nil, err
		}
		app, err := service.Reject(ctx, user, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.ApplicationOutput{Body: *app}, nil
	}

	// Both verbs are accepted for the resolution actions
	for _, method := range []string{http.MethodPost, http.MethodPut} {
		suffix := "-post"
		if method == http.MethodPut {
			suffix = "-put"
		}

		huma.Register(api, huma.Operation{
			OperationID: "applications-approve" + suffix,
			Method:      method,
			Path:        basePath + "/{application_id}/approve",
			Summary:     "Approve an application",
			Description: "Assigns the item to the applicant and rejects every other pending application for it",
			Tags:        []string{"Applications"},
			Security:    security,
		}, approve)

		huma.Register(api, huma.Operation{
			OperationID: "applications-reject" + suffix,
			Method:      method,
			Path:        basePath + "/{application_id}/reject",
			Summary:     "Reject an application",
			Tags:        []string{"Applications"},
			Security:    security,
		}, reject)
	}

	huma.Register(api, huma.Operation{
		OperationID: "applications-withdraw",
		Method:      http.MethodDelete,
		Path:        basePath + "/{application_id}",
		Summary:     "Withdraw my application",
		Tags:        []string{"Applications"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ApplicationIDInput) (*dto.ApplicationOutput, error) {
		user, err := auth.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		id, err := parseApplicationID(input.ApplicationID)
		if err != nil {
			return nil, err
		}
		app, err := service.Withdraw(ctx, user, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.ApplicationOutput{Body: *app}, nil
	})
}

// RegisterAssignmentRoutes registers manual item assignment on the boss kills path
func RegisterAssignmentRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID: "boss-kills-assign-item",
		Method:      http.MethodPut,
		Path:        basePath + "/{kill_id}",
		Summary:     "Assign an item by hand",
		Description: "Gives a pending item to a member and rejects every pending application for it",
		Tags:        []string{"Boss Kills"},
		Security:    security,
	}, func(ctx context.Context, input *dto.AssignInput) (*dto.ResolveOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapApplicationsResolve)
		if err != nil {
			return nil, err
		}
		killID, err := primitive.ObjectIDFromHex(input.KillID)
		if err != nil {
			return nil, huma.Error404NotFound("boss kill not found")
		}
		recipient, err := primitive.ObjectIDFromHex(input.Body.FinalRecipient)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid final_recipient")
		}
		result, err := service.AssignManually(ctx, user, killID, input.Body.ItemID, recipient)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return toResolveOutput(result), nil
	})
}

func listFilter(input *dto.ListApplicationsInput) (models.ListFilter, int, int, error) {
	page, limit, skip := handlers.Paginate(input.Page, input.Limit, 100)
	filter := models.ListFilter{Status: models.Status(input.Status), Skip: skip, Limit: int64(limit)}
	if input.KillID != "" {
		killID, err := primitive.ObjectIDFromHex(input.KillID)
		if err != nil {
			return filter, 0, 0, huma.Error400BadRequest("invalid kill_id")
		}
		filter.KillID = &killID
	}
	return filter, page, limit, nil
}

func listOutput(apps []models.Application, total int64, page, limit int) *dto.ListApplicationsOutput {
	out := &dto.ListApplicationsOutput{}
	out.Body.Applications = apps
	out.Body.Total = total
	out.Body.Page = page
	out.Body.Limit = limit
	return out
}
