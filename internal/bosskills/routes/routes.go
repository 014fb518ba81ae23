package routes

import (
	"context"
	"net/http"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/bosskills/dto"
	"loot-tracker/internal/bosskills/models"
	"loot-tracker/internal/bosskills/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var security = []map[string][]string{{"authToken": {}}}

func parseKillID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, huma.Error404NotFound("boss kill not found")
	}
	return id, nil
}

// RegisterBossKillsRoutes registers kill routes on a shared API
func RegisterBossKillsRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID:   "boss-kills-create",
		Method:        http.MethodPost,
		Path:          basePath,
		Summary:       "Record a boss kill",
		Description:   "Stores the kill and opens every dropped item for applications until its deadline",
		Tags:          []string{"Boss Kills"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *dto.CreateKillInput) (*dto.KillOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapKillsWrite)
		if err != nil {
			return nil, err
		}
		kill, err := service.Create(ctx, user, input.Body)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.KillOutput{Body: *kill}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "boss-kills-list",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List boss kills",
		Tags:        []string{"Boss Kills"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListKillsInput) (*dto.ListKillsOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}

		page, limit, skip := handlers.Paginate(input.Page, input.Limit, 100)
		filter := models.ListFilter{Status: models.KillStatus(input.Status), Skip: skip, Limit: int64(limit)}
		if input.BossID != "" {
			bossID, err := primitive.ObjectIDFromHex(input.BossID)
			if err != nil {
				return nil, huma.Error400BadRequest("invalid boss_id")
			}
			filter.BossID = &bossID
		}

		kills, total, err := service.List(ctx, filter)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.ListKillsOutput{}
		out.Body.Kills = kills
		out.Body.Total = total
		out.Body.Page = page
		out.Body.Limit = limit
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "boss-kills-get",
		Method:      http.MethodGet,
		Path:        basePath + "/{kill_id}",
		Summary:     "Get a boss kill",
		Tags:        []string{"Boss Kills"},
		Security:    security,
	}, func(ctx context.Context, input *dto.KillIDInput) (*dto.KillOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		id, err := parseKillID(input.KillID)
		if err != nil {
			return nil, err
		}
		kill, err := service.Get(ctx, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.KillOutput{Body: *kill}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "boss-kills-update",
		Method:      http.MethodPatch,
		Path:        basePath + "/{kill_id}",
		Summary:     "Edit a boss kill",
		Description: "Changes the kill time, attendees or screenshots. Item deadlines stay as they are.",
		Tags:        []string{"Boss Kills"},
		Security:    security,
	}, func(ctx context.Context, input *dto.UpdateKillInput) (*dto.KillOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapKillsWrite); err != nil {
			return nil, err
		}
		id, err := parseKillID(input.KillID)
		if err != nil {
			return nil, err
		}
		kill, err := service.Update(ctx, id, input.Body)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.KillOutput{Body: *kill}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "boss-kills-delete",
		Method:        http.MethodDelete,
		Path:          basePath + "/{kill_id}",
		Summary:       "Delete a boss kill",
		Description:   "Refused once any item has an owner or an auction. Pending applications are rejected.",
		Tags:          []string{"Boss Kills"},
		Security:      security,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *dto.KillIDInput) (*struct{}, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapKillsDelete)
		if err != nil {
			return nil, err
		}
		id, err := parseKillID(input.KillID)
		if err != nil {
			return nil, err
		}
		if err := service.Delete(ctx, user, id); err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "boss-kills-request-attendance",
		Method:        http.MethodPost,
		Path:          basePath + "/{kill_id}/attendee-requests",
		Summary:       "Ask to be added as attendee",
		Tags:          []string{"Boss Kills"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *dto.RequestAttendanceInput) (*dto.AttendanceOutput, error) {
		user, err := auth.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		id, err := parseKillID(input.KillID)
		if err != nil {
			return nil, err
		}
		req, err := service.RequestAttendance(ctx, user, id, input.Body.Reason)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.AttendanceOutput{Body: *req}, nil
	})
}

// RegisterAttendanceRoutes registers attendance review routes on a shared API
func RegisterAttendanceRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID: "attendee-requests-list",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List attendance requests",
		Tags:        []string{"Boss Kills"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListAttendanceInput) (*dto.ListAttendanceOutput, error) {
		if _, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapKillsWrite); err != nil {
			return nil, err
		}
		var killID *primitive.ObjectID
		if input.KillID != "" {
			id, err := primitive.ObjectIDFromHex(input.KillID)
			if err != nil {
				return nil, huma.Error400BadRequest("invalid kill_id")
			}
			killID = &id
		}
		requests, err := service.ListAttendance(ctx, models.AttendeeStatus(input.Status), killID)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.ListAttendanceOutput{}
		out.Body.Requests = requests
		return out, nil
	})

	for _, decision := range []struct {
		action  string
		approve bool
	}{{"approve", true}, {"reject", false}} {
		approve := decision.approve
		huma.Register(api, huma.Operation{
			OperationID: "attendee-requests-" + decision.action,
			Method:      http.MethodPut,
			Path:        basePath + "/{request_id}/" + decision.action,
			Summary:     "Resolve an attendance request (" + decision.action + ")",
			Tags:        []string{"Boss Kills"},
			Security:    security,
		}, func(ctx context.Context, input *dto.AttendanceIDInput) (*dto.AttendanceOutput, error) {
			user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapKillsWrite)
			if err != nil {
				return nil, err
			}
			id, err := primitive.ObjectIDFromHex(input.RequestID)
			if err != nil {
				return nil, huma.Error404NotFound("attendance request not found")
			}
			req, err := service.ResolveAttendance(ctx, user, id, approve)
			if err != nil {
				return nil, apperrors.ToHuma(err)
			}
			return &dto.AttendanceOutput{Body: *req}, nil
		})
	}
}

// RegisterItemsRoutes registers the auctionable items view on a shared API
func RegisterItemsRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID: "items-auctionable",
		Method:      http.MethodGet,
		Path:        basePath + "/auctionable",
		Summary:     "List auctionable items",
		Description: "Expired items nobody received and no auction is running for",
		Tags:        []string{"Auctions"},
		Security:    security,
	}, func(ctx context.Context, input *dto.AuctionableInput) (*dto.AuctionableOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		items, err := service.Auctionable(ctx)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.AuctionableOutput{}
		out.Body.Items = items
		out.Body.Count = len(items)
		return out, nil
	})
}
