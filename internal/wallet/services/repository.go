package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loot-tracker/internal/wallet/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository handles database operations for wallets and the ledger
type Repository struct {
	wallets      *mongo.Collection
	transactions *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		wallets:      db.Collection(models.WalletsCollection),
		transactions: db.Collection(models.TransactionsCollection),
	}
}

// Get returns the wallet of userID. A user who never held a balance has an empty wallet.
func (r *Repository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.wallets.FindOne(ctx, bson.M{"user_id": userID}).Decode(&wallet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &models.Wallet{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// Debit subtracts amount only when the balance covers it
func (r *Repository) Debit(ctx context.Context, userID primitive.ObjectID, currency models.Currency, amount int64, at time.Time) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.wallets.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, currency.Field(): bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{currency.Field(): -amount},
			"$set": bson.M{"updated_at": at},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&wallet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.InsufficientFunds("insufficient %s balance", currency)
		}
		return nil, fmt.Errorf("failed to debit wallet: %w", err)
	}
	return &wallet, nil
}

// Credit adds amount, creating the wallet when needed
func (r *Repository) Credit(ctx context.Context, userID primitive.ObjectID, currency models.Currency, amount int64, at time.Time) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.wallets.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$inc": bson.M{currency.Field(): amount},
			"$set": bson.M{"updated_at": at},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}
	return &wallet, nil
}

// InsertTransaction appends a ledger row. A reused idempotency key is a Conflict.
func (r *Repository) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	result, err := r.transactions.InsertOne(ctx, tx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("idempotency key already used")
		}
		return fmt.Errorf("failed to record wallet transaction: %w", err)
	}
	tx.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByIdempotencyKey returns the ledger row written under key
func (r *Repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.transactions.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("transaction not found")
		}
		return nil, fmt.Errorf("failed to get wallet transaction: %w", err)
	}
	return &tx, nil
}

// ListTransactions returns a user's ledger rows, newest first
func (r *Repository) ListTransactions(ctx context.Context, userID primitive.ObjectID, currency models.Currency, skip, limit int64) ([]models.Transaction, int64, error) {
	filter := bson.M{"user_id": userID}
	if currency != "" {
		filter["currency"] = currency
	}

	total, err := r.transactions.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.transactions.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer cursor.Close(ctx)

	transactions := []models.Transaction{}
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, 0, fmt.Errorf("failed to decode wallet transactions: %w", err)
	}
	return transactions, total, nil
}
