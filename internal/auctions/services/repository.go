package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loot-tracker/internal/auctions/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository handles database operations for auctions and bids
type Repository struct {
	auctions *mongo.Collection
	bids     *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		auctions: db.Collection(models.AuctionsCollection),
		bids:     db.Collection(models.BidsCollection),
	}
}

// Create inserts an auction. A second open auction for the same item is a Conflict.
func (r *Repository) Create(ctx context.Context, auction *models.Auction) error {
	if auction.ID.IsZero() {
		auction.ID = primitive.NewObjectID()
	}
	auction.Open = auction.Status.Open()
	if _, err := r.auctions.InsertOne(ctx, auction); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("item already has an open auction")
		}
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

// GetByID retrieves an auction
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Auction, error) {
	var auction models.Auction
	if err := r.auctions.FindOne(ctx, bson.M{"_id": id}).Decode(&auction); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("auction not found")
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return &auction, nil
}

// List returns a page of auctions, soonest end first
func (r *Repository) List(ctx context.Context, filter models.ListFilter) ([]models.Auction, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	total, err := r.auctions.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count auctions: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "end_time", Value: 1}}).SetSkip(filter.Skip)
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	cursor, err := r.auctions.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer cursor.Close(ctx)

	auctions := []models.Auction{}
	if err := cursor.All(ctx, &auctions); err != nil {
		return nil, 0, fmt.Errorf("failed to decode auctions: %w", err)
	}
	return auctions, total, nil
}

func (r *Repository) findOneAndUpdate(ctx context.Context, filter, update bson.M, opts ...*options.FindOneAndUpdateOptions) (*models.Auction, error) {
	opts = append(opts, options.FindOneAndUpdate().SetReturnDocument(options.After))
	var auction models.Auction
	if err := r.auctions.FindOneAndUpdate(ctx, filter, update, opts...).Decode(&auction); err != nil {
		return nil, err
	}
	return &auction, nil
}

// ApplyBid raises the price if it is still the one the bid was checked against and the
// auction is still running
func (r *Repository) ApplyBid(ctx context.Context, u models.BidUpdate, at time.Time) (*models.Auction, error) {
	auction, err := r.findOneAndUpdate(ctx,
		bson.M{
			"_id":           u.AuctionID,
			"status":        models.StatusActive,
			"current_price": u.ExpectedPrice,
			"end_time":      bson.M{"$gt": at},
		},
		bson.M{
			"$set": bson.M{
				"current_price":       u.Amount,
				"highest_bidder":      u.Bidder,
				"highest_bidder_name": u.BidderName,
				"highest_bid_id":      u.BidID,
				"updated_at":          at,
			},
			"$inc": bson.M{"bid_count": 1},
		},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Conflict("auction changed while bidding, retry with a higher amount")
		}
		return nil, fmt.Errorf("failed to apply bid: %w", err)
	}
	return auction, nil
}

// ClaimDue marks one due auction as settling. Settling auctions whose claim is older than
// staleBefore are claimed again. It returns nil when nothing is due.
func (r *Repository) ClaimDue(ctx context.Context, now, staleBefore time.Time) (*models.Auction, error) {
	auction, err := r.findOneAndUpdate(ctx,
		bson.M{"$or": []bson.M{
			{"status": models.StatusActive, "end_time": bson.M{"$lte": now}},
			{"status": models.StatusSettling, "claimed_at": bson.M{"$lte": staleBefore}},
		}},
		bson.M{"$set": bson.M{"status": models.StatusSettling, "claimed_at": now, "updated_at": now}},
		options.FindOneAndUpdate().SetSort(bson.D{{Key: "end_time", Value: 1}}),
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim due auction: %w", err)
	}
	return auction, nil
}

// Complete finishes a settling auction
func (r *Repository) Complete(ctx context.Context, id primitive.ObjectID, winner *primitive.ObjectID, winnerName string, finalPrice int64, at time.Time) (*models.Auction, error) {
	set := bson.M{
		"status":     models.StatusCompleted,
		"open":       false,
		"settled_at": at,
		"updated_at": at,
	}
	if winner != nil {
		set["winner"] = *winner
		set["winner_name"] = winnerName
		set["final_price"] = finalPrice
	}

	auction, err := r.findOneAndUpdate(ctx, bson.M{"_id": id, "status": models.StatusSettling}, bson.M{"$set": set})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.InvalidState("auction is no longer settling")
		}
		return nil, fmt.Errorf("failed to complete auction: %w", err)
	}
	return auction, nil
}

// Cancel closes an active auction
func (r *Repository) Cancel(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Auction, error) {
	auction, err := r.findOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusActive},
		bson.M{"$set": bson.M{"status": models.StatusCancelled, "open": false, "updated_at": at}},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			existing, getErr := r.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return nil, apperrors.InvalidState("auction is %s", existing.Status)
		}
		return nil, fmt.Errorf("failed to cancel auction: %w", err)
	}
	return auction, nil
}

// InsertBid stores an accepted bid. A reused idempotency key is a Conflict.
func (r *Repository) InsertBid(ctx context.Context, bid *models.Bid) error {
	if bid.ID.IsZero() {
		bid.ID = primitive.NewObjectID()
	}
	if _, err := r.bids.InsertOne(ctx, bid); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("idempotency key already used")
		}
		return fmt.Errorf("failed to record bid: %w", err)
	}
	return nil
}

// FindBidByKey returns the bid recorded under an idempotency key
func (r *Repository) FindBidByKey(ctx context.Context, key string) (*models.Bid, error) {
	var bid models.Bid
	if err := r.bids.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&bid); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("bid not found")
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return &bid, nil
}

// ListBids returns the bids of an auction, highest first
func (r *Repository) ListBids(ctx context.Context, auctionID primitive.ObjectID) ([]models.Bid, error) {
	cursor, err := r.bids.Find(ctx,
		bson.M{"auction_id": auctionID},
		options.Find().SetSort(bson.D{{Key: "amount", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer cursor.Close(ctx)

	bids := []models.Bid{}
	if err := cursor.All(ctx, &bids); err != nil {
		return nil, fmt.Errorf("failed to decode bids: %w", err)
	}
	return bids, nil
}
