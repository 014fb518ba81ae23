package routes

import (
	"context"
	"net/http"

	"loot-tracker/internal/notifications/dto"
	"loot-tracker/internal/notifications/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterNotificationsRoutes registers inbox routes on a shared API
func RegisterNotificationsRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	security := []map[string][]string{{"authToken": {}}}

	caller := func(ctx context.Context, headers middleware.AuthHeaders) (primitive.ObjectID, error) {
		user, err := auth.RequireAuth(ctx, headers)
		if err != nil {
			return primitive.NilObjectID, err
		}
		id, err := primitive.ObjectIDFromHex(user.UserID)
		if err != nil {
			return primitive.NilObjectID, huma.Error401Unauthorized("Invalid authentication token")
		}
		return id, nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "notifications-list",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List my notifications",
		Tags:        []string{"Notifications"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListNotificationsInput) (*dto.ListNotificationsOutput, error) {
		recipient, err := caller(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}

		page, limit, skip := handlers.Paginate(input.Page, input.Limit, 100)
		notifications, total, err := service.List(ctx, recipient, input.UnreadOnly, skip, int64(limit))
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		unread, err := service.UnreadCount(ctx, recipient)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}

		out := &dto.ListNotificationsOutput{}
		out.Body.Notifications = notifications
		out.Body.Total = total
		out.Body.UnreadCount = unread
		out.Body.Page = page
		out.Body.Limit = limit
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "notifications-unread-count",
		Method:      http.MethodGet,
		Path:        basePath + "/unread-count",
		Summary:     "Count my unread notifications",
		Tags:        []string{"Notifications"},
		Security:    security,
	}, func(ctx context.Context, input *dto.UnreadCountInput) (*dto.UnreadCountOutput, error) {
		recipient, err := caller(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		count, err := service.UnreadCount(ctx, recipient)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.UnreadCountOutput{}
		out.Body.Count = count
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "notifications-mark-read",
		Method:      http.MethodPost,
		Path:        basePath + "/{notification_id}/read",
		Summary:     "Mark a notification read",
		Tags:        []string{"Notifications"},
		Security:    security,
	}, func(ctx context.Context, input *dto.MarkReadInput) (*dto.NotificationOutput, error) {
		recipient, err := caller(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		notification, err := service.MarkRead(ctx, recipient, input.NotificationID)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.NotificationOutput{Body: *notification}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "notifications-mark-all-read",
		Method:      http.MethodPost,
		Path:        basePath + "/read-all",
		Summary:     "Mark all my notifications read",
		Tags:        []string{"Notifications"},
		Security:    security,
	}, func(ctx context.Context, input *dto.MarkAllReadInput) (*dto.MarkAllReadOutput, error) {
		recipient, err := caller(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		updated, err := service.MarkAllRead(ctx, recipient)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.MarkAllReadOutput{}
		out.Body.Updated = updated
		return out, nil
	})
}
