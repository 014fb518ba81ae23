package routes

import (
	"context"
	"net/http"

	"loot-tracker/internal/auctions/dto"
	"loot-tracker/internal/auctions/models"
	"loot-tracker/internal/auctions/services"
	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var security = []map[string][]string{{"authToken": {}}}

func parseAuctionID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, huma.Error404NotFound("auction not found")
	}
	return id, nil
}

// RegisterAuctionsRoutes registers auction routes on a shared API. Bids go through limiter.
func RegisterAuctionsRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware, limiter *middleware.RateLimiter) {
	huma.Register(api, huma.Operation{
		OperationID:   "auctions-create",
		Method:        http.MethodPost,
		Path:          basePath,
		Summary:       "Auction an expired item",
		Tags:          []string{"Auctions"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *dto.CreateAuctionInput) (*dto.AuctionOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapAuctionsCreate)
		if err != nil {
			return nil, err
		}
		auction, err := service.Create(ctx, user, input.Body)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.AuctionOutput{Body: *auction}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auctions-list",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List auctions",
		Tags:        []string{"Auctions"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListAuctionsInput) (*dto.ListAuctionsOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		page, limit, skip := handlers.Paginate(input.Page, input.Limit, 100)
		auctions, total, err := service.List(ctx, models.ListFilter{
			Status: models.Status(input.Status),
			Skip:   skip,
			Limit:  int64(limit),
		})
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.ListAuctionsOutput{}
		out.Body.Auctions = auctions
		out.Body.Total = total
		out.Body.Page = page
		out.Body.Limit = limit
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auctions-pending-count",
		Method:      http.MethodGet,
		Path:        basePath + "/pending-count",
		Summary:     "Count items waiting for an auction",
		Tags:        []string{"Auctions"},
		Security:    security,
	}, func(ctx context.Context, input *dto.PendingCountInput) (*dto.PendingCountOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		count, err := service.PendingCount(ctx)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.PendingCountOutput{}
		out.Body.Count = count
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auctions-get",
		Method:      http.MethodGet,
		Path:        basePath + "/{auction_id}",
		Summary:     "Get an auction",
		Tags:        []string{"Auctions"},
		Security:    security,
	}, func(ctx context.Context, input *dto.AuctionIDInput) (*dto.AuctionOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		id, err := parseAuctionID(input.AuctionID)
		if err != nil {
			return nil, err
		}
		auction, err := service.Get(ctx, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.AuctionOutput{Body: *auction}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auctions-bids",
		Method:      http.MethodGet,
		Path:        basePath + "/{auction_id}/bids",
		Summary:     "List the bids of an auction",
		Tags:        []string{"Auctions"},
		Security:    security,
	}, func(ctx context.Context, input *dto.AuctionIDInput) (*dto.BidsOutput, error) {
		if _, err := auth.RequireAuth(ctx, input.AuthHeaders); err != nil {
			return nil, err
		}
		id, err := parseAuctionID(input.AuctionID)
		if err != nil {
			return nil, err
		}
		bids, err := service.Bids(ctx, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.BidsOutput{}
		out.Body.Bids = bids
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auctions-bid",
		Method:      http.MethodPost,
		Path:        basePath + "/{auction_id}/bid",
		Summary:     "Bid on an auction",
		Description: "Holds the amount from your wallet and refunds the previous highest bidder",
		Tags:        []string{"Auctions"},
		Security:    security,
		Middlewares: huma.Middlewares{limiter.Huma(api)},
	}, func(ctx context.Context, input *dto.BidInput) (*dto.BidOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapAuctionsBid)
		if err != nil {
			return nil, err
		}
		id, err := parseAuctionID(input.AuctionID)
		if err != nil {
			return nil, err
		}
		key := input.Body.IdempotencyKey
		if key == "" {
			key = input.IdempotencyKey
		}
		result, err := service.Bid(ctx, user, id, input.Body.Amount, key)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		out := &dto.BidOutput{}
		out.Body.Auction = *result.Auction
		out.Body.Bid = *result.Bid
		out.Body.Replayed = result.Replayed
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auctions-cancel",
		Method:      http.MethodPost,
		Path:        basePath + "/{auction_id}/cancel",
		Summary:     "Cancel an auction",
		Description: "Refunds the highest bid and puts the item back up for auction",
		Tags:        []string{"Auctions"},
		Security:    security,
	}, func(ctx context.Context, input *dto.AuctionIDInput) (*dto.AuctionOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapAuctionsCancel)
		if err != nil {
			return nil, err
		}
		id, err := parseAuctionID(input.AuctionID)
		if err != nil {
			return nil, err
		}
		auction, err := service.Cancel(ctx, user, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.AuctionOutput{Body: *auction}, nil
	})
}
