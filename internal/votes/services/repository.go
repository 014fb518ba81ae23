package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loot-tracker/internal/votes/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository handles database operations for votes
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection(models.VotesCollection)}
}

// Create inserts a vote
func (r *Repository) Create(ctx context.Context, vote *models.Vote) error {
	if vote.ID.IsZero() {
		vote.ID = primitive.NewObjectID()
	}
	if vote.Voters == nil {
		vote.Voters = []primitive.ObjectID{}
	}
	if _, err := r.collection.InsertOne(ctx, vote); err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

// GetByID retrieves a vote
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Vote, error) {
	var vote models.Vote
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vote); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("vote not found")
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &vote, nil
}

// List returns votes newest deadline first
func (r *Repository) List(ctx context.Context, filter models.ListFilter) ([]models.Vote, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count votes: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "deadline", Value: -1}}).
		SetSkip(filter.Skip).
		SetLimit(filter.Limit)
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list votes: %w", err)
	}
	defer cursor.Close(ctx)

	votes := []models.Vote{}
	if err := cursor.All(ctx, &votes); err != nil {
		return nil, 0, fmt.Errorf("failed to decode votes: %w", err)
	}
	return votes, total, nil
}

// Cast records one ballot. The filter carries every precondition so concurrent ballots
// from the same member cannot both count.
func (r *Repository) Cast(ctx context.Context, id primitive.ObjectID, optionID string, voter primitive.ObjectID, at time.Time) (*models.Vote, error) {
	var vote models.Vote
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{
			"_id":        id,
			"status":     models.StatusOpen,
			"deadline":   bson.M{"$gt": at},
			"voters":     bson.M{"$ne": voter},
			"options.id": optionID,
		},
		bson.M{
			"$push": bson.M{"voters": voter},
			"$inc":  bson.M{"options.$[opt].votes": 1, "voter_count": 1},
			"$set":  bson.M{"updated_at": at},
		},
		options.FindOneAndUpdate().
			SetArrayFilters(options.ArrayFilters{Filters: []interface{}{bson.M{"opt.id": optionID}}}).
			SetReturnDocument(options.After),
	).Decode(&vote)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Conflict("ballot not accepted, the vote closed or you already voted")
		}
		return nil, fmt.Errorf("failed to cast ballot: %w", err)
	}
	return &vote, nil
}

// ClaimDue moves one vote past its deadline from open to closing. Votes stuck in closing
// since before staleBefore are handed out again. It returns nil when nothing is due.
func (r *Repository) ClaimDue(ctx context.Context, now, staleBefore time.Time) (*models.Vote, error) {
	var vote models.Vote
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"$or": []bson.M{
			{"status": models.StatusOpen, "deadline": bson.M{"$lte": now}},
			{"status": models.StatusClosing, "claimed_at": bson.M{"$lt": staleBefore}},
		}},
		bson.M{"$set": bson.M{"status": models.StatusClosing, "claimed_at": now, "updated_at": now}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "deadline", Value: 1}}).
			SetReturnDocument(options.After),
	).Decode(&vote)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim vote: %w", err)
	}
	return &vote, nil
}

// Close finishes a claimed vote
func (r *Repository) Close(ctx context.Context, id primitive.ObjectID, winners []string, at time.Time) (*models.Vote, error) {
	var vote models.Vote
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusClosing},
		bson.M{
			"$set":   bson.M{"status": models.StatusClosed, "winners": winners, "closed_at": at, "updated_at": at},
			"$unset": bson.M{"claimed_at": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&vote)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.InvalidState("vote is no longer closing")
		}
		return nil, fmt.Errorf("failed to close vote: %w", err)
	}
	return &vote, nil
}
