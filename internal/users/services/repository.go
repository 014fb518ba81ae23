package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/users/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository handles database operations for users
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		collection: db.Collection(models.UsersCollection),
	}
}

// Create inserts a user. A taken username or character name is a Conflict.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("username or character name already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *Repository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by id
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByUsername retrieves a user by login name
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// Count returns the number of registered users
func (r *Repository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// TouchLogin records a successful login
func (r *Repository) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login": at, "updated_at": at}})
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// List returns a page of users and the total matching the filter
func (r *Repository) List(ctx context.Context, filter models.ListFilter) ([]models.User, int64, error) {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.Disabled != nil {
		query["disabled"] = *filter.Disabled
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = []bson.M{{"username": pattern}, {"character_name": pattern}}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}}).SetSkip(filter.Skip)
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	users, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *Repository) find(ctx context.Context, query bson.M, opts ...*options.FindOptions) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// SetRole changes a user's role and returns the updated user
func (r *Repository) SetRole(ctx context.Context, id primitive.ObjectID, role authModels.Role, at time.Time) (*models.User, error) {
	return r.update(ctx, id, bson.M{"role": role, "updated_at": at})
}

// SetDisabled enables or disables a user and returns the updated user
func (r *Repository) SetDisabled(ctx context.Context, id primitive.ObjectID, disabled bool, at time.Time) (*models.User, error) {
	set := bson.M{"disabled": disabled, "updated_at": at}
	if disabled {
		set["disabled_at"] = at
		return r.update(ctx, id, set)
	}

	var user models.User
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$unset": bson.M{"disabled_at": ""}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

func (r *Repository) update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

// FindInactive returns enabled non-admin users whose last login, or registration when they
// never logged in, is older than cutoff
func (r *Repository) FindInactive(ctx context.Context, cutoff time.Time) ([]models.User, error) {
	return r.find(ctx, bson.M{
		"disabled": false,
		"role":     bson.M{"$ne": authModels.RoleAdmin},
		"$or": []bson.M{
			{"last_login": bson.M{"$lt": cutoff}},
			{"last_login": bson.M{"$exists": false}, "created_at": bson.M{"$lt": cutoff}},
		},
	})
}

// FindByCharacterNames returns the accounts owning any of the given characters
func (r *Repository) FindByCharacterNames(ctx context.Context, names []string) ([]models.User, error) {
	if len(names) == 0 {
		return []models.User{}, nil
	}
	return r.find(ctx, bson.M{"character_name": bson.M{"$in": names}, "disabled": false})
}

// IDsByRole returns the ids of enabled users holding any of roles
func (r *Repository) IDsByRole(ctx context.Context, roles ...authModels.Role) ([]primitive.ObjectID, error) {
	users, err := r.find(ctx,
		bson.M{"role": bson.M{"$in": roles}, "disabled": false},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(users))
	for i, user := range users {
		ids[i] = user.ID
	}
	return ids, nil
}
