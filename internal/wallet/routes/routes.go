package routes

import (
	"context"
	"net/http"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/wallet/dto"
	"loot-tracker/internal/wallet/models"
	"loot-tracker/internal/wallet/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterWalletRoutes registers wallet routes on a shared API
func RegisterWalletRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	security := []map[string][]string{{"authToken": {}}}

	huma.Register(api, huma.Operation{
		OperationID: "wallet-get",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "Get my wallet",
		Tags:        []string{"Wallet"},
		Security:    security,
	}, func(ctx context.Context, input *dto.GetWalletInput) (*dto.WalletOutput, error) {
		user, err := auth.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		userID, err := primitive.ObjectIDFromHex(user.UserID)
		if err != nil {
			return nil, huma.Error401Unauthorized("Invalid authentication token")
		}
		wallet, err := service.Balance(ctx, userID)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.WalletOutput{Body: *wallet}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "wallet-transactions",
		Method:      http.MethodGet,
		Path:        basePath + "/transactions",
		Summary:     "List my wallet transactions",
		Tags:        []string{"Wallet"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListTransactionsInput) (*dto.ListTransactionsOutput, error) {
		user, err := auth.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		userID, err := primitive.ObjectIDFromHex(user.UserID)
		if err != nil {
			return nil, huma.Error401Unauthorized("Invalid authentication token")
		}

		page, limit, skip := handlers.Paginate(input.Page, input.Limit, 100)
		transactions, total, err := service.Transactions(ctx, userID, models.Currency(input.Currency), skip, int64(limit))
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}

		out := &dto.ListTransactionsOutput{}
		out.Body.Transactions = transactions
		out.Body.Total = total
		out.Body.Page = page
		out.Body.Limit = limit
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "wallet-adjust",
		Method:        http.MethodPost,
		Path:          basePath + "/adjust",
		Summary:       "Grant or deduct currency",
		Description:   "Administrative balance change recorded in the ledger",
		Tags:          []string{"Wallet"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *dto.AdjustInput) (*dto.TransactionOutput, error) {
		actor, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapWalletAdjust)
		if err != nil {
			return nil, err
		}
		userID, err := primitive.ObjectIDFromHex(input.Body.UserID)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid user_id")
		}

		tx, err := service.Adjust(ctx, actor.UserID, services.AdjustRequest{
			UserID:         userID,
			Currency:       input.Body.Currency,
			Amount:         input.Body.Amount,
			Kind:           input.Body.Kind,
			Reason:         input.Body.Reason,
			IdempotencyKey: input.Body.IdempotencyKey,
		})
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.TransactionOutput{Body: *tx}, nil
	})
}
