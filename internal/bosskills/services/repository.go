package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loot-tracker/internal/bosskills/models"
	"loot-tracker/pkg/apperrors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository handles database operations for boss kills. Every item mutation is a
// conditional update on the item's current status followed by a kill status recompute.
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates a new repository instance
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection(models.BossKillsCollection)}
}

// Create inserts a kill
func (r *Repository) Create(ctx context.Context, kill *models.BossKill) error {
	result, err := r.collection.InsertOne(ctx, kill)
	if err != nil {
		return fmt.Errorf("failed to create boss kill: %w", err)
	}
	kill.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID retrieves a kill
func (r *Repository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.BossKill, error) {
	var kill models.BossKill
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&kill); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("boss kill not found")
		}
		return nil, fmt.Errorf("failed to get boss kill: %w", err)
	}
	return &kill, nil
}

// List returns a page of kills, newest first
func (r *Repository) List(ctx context.Context, filter models.ListFilter) ([]models.BossKill, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.BossID != nil {
		query["boss_id"] = *filter.BossID
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count boss kills: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "kill_time", Value: -1}}).SetSkip(filter.Skip)
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	kills, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return kills, total, nil
}

func (r *Repository) find(ctx context.Context, query interface{}, opts ...*options.FindOptions) ([]models.BossKill, error) {
	cursor, err := r.collection.Find(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find boss kills: %w", err)
	}
	defer cursor.Close(ctx)

	kills := []models.BossKill{}
	if err := cursor.All(ctx, &kills); err != nil {
		return nil, fmt.Errorf("failed to decode boss kills: %w", err)
	}
	return kills, nil
}

// UpdateDetails sets kill level fields such as attendees, screenshots or kill time
func (r *Repository) UpdateDetails(ctx context.Context, id primitive.ObjectID, set map[string]interface{}, at time.Time) (*models.BossKill, error) {
	fields := bson.M{"updated_at": at}
	for key, value := range set {
		fields[key] = value
	}

	var kill models.BossKill
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields, "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&kill)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("boss kill not found")
		}
		return nil, fmt.Errorf("failed to update boss kill: %w", err)
	}
	return &kill, nil
}

// Delete removes a kill
func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete boss kill: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("boss kill not found")
	}
	return nil
}

// AssignItem gives a pending item to recipient
func (r *Repository) AssignItem(ctx context.Context, killID primitive.ObjectID, itemID string, recipient primitive.ObjectID, recipientName string, at time.Time) (*models.BossKill, error) {
	return r.TransitionItem(ctx, models.ItemTransition{
		KillID: killID,
		ItemID: itemID,
		From:   []models.ItemStatus{models.ItemPending},
		To:     models.ItemAssigned,
		Set: map[string]interface{}{
			"final_recipient":      recipient,
			"final_recipient_name": recipientName,
			"assigned_at":          at,
		},
	}, at)
}

// TransitionItem moves one item from any of t.From to t.To. A kill whose item is no longer
// in t.From yields Conflict; a missing kill NotFound; a missing item InvalidItem.
func (r *Repository) TransitionItem(ctx context.Context, t models.ItemTransition, at time.Time) (*models.BossKill, error) {
	set := bson.M{
		"dropped_items.$.status": t.To,
		"updated_at":             at,
	}
	for field, value := range t.Set {
		set["dropped_items.$."+field] = value
	}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if len(t.Unset) > 0 {
		unset := bson.M{}
		for _, field := range t.Unset {
			unset["dropped_items.$."+field] = ""
		}
		update["$unset"] = unset
	}

	var kill models.BossKill
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{
			"_id": t.KillID,
			"dropped_items": bson.M{"$elemMatch": bson.M{
				"id":     t.ItemID,
				"status": bson.M{"$in": t.From},
			}},
		},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&kill)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.transitionFailure(ctx, t)
		}
		return nil, fmt.Errorf("failed to update dropped item: %w", err)
	}

	return r.syncStatus(ctx, &kill, at)
}

func (r *Repository) transitionFailure(ctx context.Context, t models.ItemTransition) error {
	kill, err := r.GetByID(ctx, t.KillID)
	if err != nil {
		return err
	}
	item, ok := kill.Item(t.ItemID)
	if !ok {
		return apperrors.InvalidItem("item %s is not part of this kill", t.ItemID)
	}
	return apperrors.Conflict("item %q is %s", item.Name, item.Status)
}

// syncStatus stores the status derived from the kill's items. The write is conditional on
// the version the status was derived from; a newer version recomputes on its own write.
func (r *Repository) syncStatus(ctx context.Context, kill *models.BossKill, at time.Time) (*models.BossKill, error) {
	status := models.Summarize(kill.DroppedItems)
	if status == kill.Status {
		return kill, nil
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": kill.ID, "version": kill.Version},
		bson.M{"$set": bson.M{"status": status, "updated_at": at}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update boss kill status: %w", err)
	}
	kill.Status = status
	kill.UpdatedAt = at
	return kill, nil
}

// ClaimExpired moves every pending, unowned item whose deadline passed to processing
func (r *Repository) ClaimExpired(ctx context.Context, now time.Time) (int64, error) {
	due := bson.M{
		"status":          models.ItemPending,
		"apply_deadline":  bson.M{"$lte": now},
		"final_recipient": bson.M{"$exists": false},
	}

	result, err := r.collection.UpdateMany(ctx,
		bson.M{"dropped_items": bson.M{"$elemMatch": due}},
		bson.M{
			"$set": bson.M{"dropped_items.$[due].status": models.ItemProcessing, "updated_at": now},
			"$inc": bson.M{"version": 1},
		},
		options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
			bson.M{
				"due.status":          models.ItemPending,
				"due.apply_deadline":  bson.M{"$lte": now},
				"due.final_recipient": bson.M{"$exists": false},
			},
		}}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to claim expired items: %w", err)
	}
	return result.ModifiedCount, nil
}

// FindProcessing returns kills holding claimed items, including claims left by an
// interrupted run
func (r *Repository) FindProcessing(ctx context.Context) ([]models.BossKill, error) {
	return r.find(ctx, bson.M{"dropped_items.status": models.ItemProcessing})
}

// FlipProcessing moves the kill's processing items to expired
func (r *Repository) FlipProcessing(ctx context.Context, killID primitive.ObjectID, at time.Time) (*models.BossKill, error) {
	var kill models.BossKill
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": killID, "dropped_items.status": models.ItemProcessing},
		bson.M{
			"$set": bson.M{"dropped_items.$[claimed].status": models.ItemExpired, "updated_at": at},
			"$inc": bson.M{"version": 1},
		},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
				bson.M{"claimed.status": models.ItemProcessing},
			}}),
	).Decode(&kill)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("no claimed items on boss kill")
		}
		return nil, fmt.Errorf("failed to expire claimed items: %w", err)
	}
	return r.syncStatus(ctx, &kill, at)
}

func auctionableStages() []bson.D {
	unowned := bson.M{"status": models.ItemExpired, "final_recipient": bson.M{"$exists": false}}
	return []bson.D{
		{{Key: "$match", Value: bson.M{"dropped_items": bson.M{"$elemMatch": unowned}}}},
		{{Key: "$unwind", Value: "$dropped_items"}},
		{{Key: "$match", Value: bson.M{
			"dropped_items.status":          models.ItemExpired,
			"dropped_items.final_recipient": bson.M{"$exists": false},
		}}},
	}
}

// ListAuctionable returns expired, unowned items, oldest deadline first
func (r *Repository) ListAuctionable(ctx context.Context) ([]models.AuctionableItem, error) {
	pipeline := mongo.Pipeline(append(auctionableStages(),
		bson.D{{Key: "$sort", Value: bson.D{{Key: "dropped_items.apply_deadline", Value: 1}}}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":            0,
			"kill_id":        "$_id",
			"boss_name":      1,
			"kill_time":      1,
			"item_id":        "$dropped_items.id",
			"item_name":      "$dropped_items.name",
			"item_type":      "$dropped_items.type",
			"apply_deadline": "$dropped_items.apply_deadline",
		}}},
	))

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctionable items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.AuctionableItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode auctionable items: %w", err)
	}
	return items, nil
}

// CountAuctionable counts expired, unowned items
func (r *Repository) CountAuctionable(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline(append(auctionableStages(),
		bson.D{{Key: "$count", Value: "count"}},
	))

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count auctionable items: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Count int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode auctionable count: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Count, nil
}

// AddAttendee adds a character to the kill's attendees
func (r *Repository) AddAttendee(ctx context.Context, killID primitive.ObjectID, characterName string, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": killID},
		bson.M{
			"$addToSet": bson.M{"attendees": characterName},
			"$set":      bson.M{"updated_at": at},
			"$inc":      bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to add attendee: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("boss kill not found")
	}
	return nil
}

// CountByBoss counts kills of a boss
func (r *Repository) CountByBoss(ctx context.Context, bossID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"boss_id": bossID})
	if err != nil {
		return 0, fmt.Errorf("failed to count boss kills: %w", err)
	}
	return count, nil
}
