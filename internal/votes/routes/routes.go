package routes

import (
	"context"
	"net/http"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/votes/dto"
	"loot-tracker/internal/votes/models"
	"loot-tracker/internal/votes/services"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/middleware"

	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var security = []map[string][]string{{"authToken": {}}}

func toResponse(vote models.Vote, user *authModels.AuthenticatedUser) dto.VoteResponse {
	voter, _ := primitive.ObjectIDFromHex(user.UserID)
	return dto.VoteResponse{Vote: vote, HasVoted: vote.HasVoted(voter)}
}

func parseVoteID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, huma.Error404NotFound("vote not found")
	}
	return id, nil
}

// RegisterVotesRoutes registers vote routes on a shared API
func RegisterVotesRoutes(api huma.API, basePath string, service *services.Service, auth *middleware.HumaAuthMiddleware) {
	huma.Register(api, huma.Operation{
		OperationID:   "votes-create",
		Method:        http.MethodPost,
		Path:          basePath,
		Summary:       "Open a vote",
		Tags:          []string{"Votes"},
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *dto.CreateVoteInput) (*dto.VoteOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapVotesCreate)
		if err != nil {
			return nil, err
		}
		vote, err := service.Create(ctx, user, input.Body)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.VoteOutput{Body: toResponse(*vote, user)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "votes-list",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List votes",
		Tags:        []string{"Votes"},
		Security:    security,
	}, func(ctx context.Context, input *dto.ListVotesInput) (*dto.ListVotesOutput, error) {
		user, err := auth.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		page, limit, skip := handlers.Paginate(input.Page, input.Limit, 100)
		votes, total, err := service.List(ctx, models.ListFilter{Status: models.Status(input.Status), Skip: skip, Limit: int64(limit)})
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}

		out := &dto.ListVotesOutput{}
		out.Body.Votes = make([]dto.VoteResponse, 0, len(votes))
		for _, vote := range votes {
			out.Body.Votes = append(out.Body.Votes, toResponse(vote, user))
		}
		out.Body.Total = total
		out.Body.Page = page
		out.Body.Limit = limit
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "votes-get",
		Method:      http.MethodGet,
		Path:        basePath + "/{vote_id}",
		Summary:     "Get a vote",
		Tags:        []string{"Votes"},
		Security:    security,
	}, func(ctx context.Context, input *dto.VoteIDInput) (*dto.VoteOutput, error) {
		user, err := auth.RequireAuth(ctx, input.AuthHeaders)
		if err != nil {
			return nil, err
		}
		id, err := parseVoteID(input.VoteID)
		if err != nil {
			return nil, err
		}
		vote, err := service.Get(ctx, id)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.VoteOutput{Body: toResponse(*vote, user)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "votes-cast",
		Method:      http.MethodPost,
		Path:        basePath + "/{vote_id}/cast",
		Summary:     "Cast a ballot",
		Description: "One ballot per member. Ballots cannot be changed.",
		Tags:        []string{"Votes"},
		Security:    security,
	}, func(ctx context.Context, input *dto.CastInput) (*dto.VoteOutput, error) {
		user, err := auth.RequireCapability(ctx, input.AuthHeaders, authModels.CapVotesCast)
		if err != nil {
			return nil, err
		}
		id, err := parseVoteID(input.VoteID)
		if err != nil {
			return nil, err
		}
		vote, err := service.Cast(ctx, user, id, input.Body.OptionID)
		if err != nil {
			return nil, apperrors.ToHuma(err)
		}
		return &dto.VoteOutput{Body: toResponse(*vote, user)}, nil
	})
}
