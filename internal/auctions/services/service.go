package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loot-tracker/internal/auctions/dto"
	"loot-tracker/internal/auctions/models"
	authModels "loot-tracker/internal/auth/models"
	killModels "loot-tracker/internal/bosskills/models"
	guildModels "loot-tracker/internal/guild/models"
	notifModels "loot-tracker/internal/notifications/models"
	walletModels "loot-tracker/internal/wallet/models"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
)

// claimTimeout is how long a settling auction stays claimed before another run may take it
const claimTimeout = 10 * time.Minute

// Store is the auction persistence the service needs
type Store interface {
	Create(ctx context.Context, auction *models.Auction) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Auction, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Auction, int64, error)
	ApplyBid(ctx context.Context, u models.BidUpdate, at time.Time) (*models.Auction, error)
	ClaimDue(ctx context.Context, now, staleBefore time.Time) (*models.Auction, error)
	Complete(ctx context.Context, id primitive.ObjectID, winner *primitive.ObjectID, winnerName string, finalPrice int64, at time.Time) (*models.Auction, error)
	Cancel(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Auction, error)
	InsertBid(ctx context.Context, bid *models.Bid) error
	FindBidByKey(ctx context.Context, key string) (*models.Bid, error)
	ListBids(ctx context.Context, auctionID primitive.ObjectID) ([]models.Bid, error)
}

// KillStore is the slice of the boss kill repository auctions move items through
type KillStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*killModels.BossKill, error)
	TransitionItem(ctx context.Context, t killModels.ItemTransition, at time.Time) (*killModels.BossKill, error)
	CountAuctionable(ctx context.Context) (int64, error)
}

// Wallet holds and refunds bid amounts
type Wallet interface {
	Debit(ctx context.Context, entry walletModels.Entry) (*walletModels.Transaction, error)
	Credit(ctx context.Context, entry walletModels.Entry) (*walletModels.Transaction, error)
}

// SettingsReader reads integer guild settings
type SettingsReader interface {
	GetInt(ctx context.Context, key string) (int, error)
}

// Notifier sends in-app notifications
type Notifier interface {
	Notify(ctx context.Context, msg notifModels.Message) error
}

// Publisher fans auction events out to live feed subscribers
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, value interface{}) error
}

// BidResult is an accepted or replayed bid
type BidResult struct {
	Auction  *models.Auction
	Bid      *models.Bid
	Replayed bool
}

// Service runs auctions of expired items
type Service struct {
	store     Store
	kills     KillStore
	wallet    Wallet
	tx        database.TxRunner
	settings  SettingsReader
	notifier  Notifier
	publisher Publisher
	now       func() time.Time
}

// NewService creates a new service instance. publisher may be nil.
func NewService(store Store, kills KillStore, wallet Wallet, tx database.TxRunner, settings SettingsReader, notifier Notifier, publisher Publisher) *Service {
	return &Service{
		store:     store,
		kills:     kills,
		wallet:    wallet,
		tx:        tx,
		settings:  settings,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create opens an auction for an expired, unowned item
func (s *Service) Create(ctx context.Context, actor *authModels.AuthenticatedUser, req dto.CreateAuctionRequest) (*models.Auction, error) {
	currency := walletModels.Currency(req.Currency)
	if currency == "" {
		currency = walletModels.CurrencyDiamonds
	}
	if !currency.Valid() {
		return nil, apperrors.Validation("unknown currency %q", req.Currency)
	}

	minPrice, err := s.settings.GetInt(ctx, guildModels.KeyAuctionMinPrice)
	if err != nil {
		return nil, err
	}
	maxPrice, err := s.settings.GetInt(ctx, guildModels.KeyAuctionMaxPrice)
	if err != nil {
		return nil, err
	}
	if req.StartingPrice < int64(minPrice) || req.StartingPrice > int64(maxPrice) {
		return nil, apperrors.Validation("starting_price must be between %d and %d", minPrice, maxPrice)
	}

	now := s.now()
	var endTime time.Time
	if req.EndTime != nil {
		endTime = req.EndTime.UTC()
	} else {
		hours, err := s.settings.GetInt(ctx, guildModels.KeyAuctionDefaultHours)
		if err != nil {
			return nil, err
		}
		endTime = now.Add(time.Duration(hours) * time.Hour)
	}
	if !endTime.After(now) {
		return nil, apperrors.Validation("end_time must be in the future")
	}

	killID, err := primitive.ObjectIDFromHex(req.KillID)
	if err != nil {
		return nil, apperrors.NotFound("boss kill not found")
	}
	kill, err := s.kills.GetByID(ctx, killID)
	if err != nil {
		return nil, err
	}
	item, ok := kill.Item(req.ItemID)
	if !ok {
		return nil, apperrors.InvalidItem("item %s is not part of this kill", req.ItemID)
	}
	if item.Status != killModels.ItemExpired || item.Owned() {
		return nil, apperrors.Conflict("item %q is %s", item.Name, item.Status)
	}

	auction := &models.Auction{
		ID:            primitive.NewObjectID(),
		KillID:        kill.ID,
		ItemID:        item.ID,
		ItemName:      item.Name,
		BossName:      kill.BossName,
		Currency:      currency,
		StartingPrice: req.StartingPrice,
		CurrentPrice:  req.StartingPrice,
		EndTime:       endTime,
		CreatedBy:     actor.UserID,
		Status:        models.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := s.kills.TransitionItem(ctx, killModels.ItemTransition{
			KillID: kill.ID,
			ItemID: item.ID,
			From:   []killModels.ItemStatus{killModels.ItemExpired},
			To:     killModels.ItemAuctioned,
			Set:    map[string]interface{}{"auction_id": auction.ID},
		}, now)
		if err != nil {
			return err
		}
		return s.store.Create(ctx, auction)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Auction created",
		"auction_id", auction.ID.Hex(),
		"item", auction.ItemName,
		"starting_price", auction.StartingPrice,
		"end_time", auction.EndTime,
		"by", actor.UserID)

	s.publish(ctx, models.EventAuctionCreated, auction)
	return auction, nil
}

// Bid places a bid. The amount is held from the bidder's wallet and the previous highest
// bidder is refunded in the same transaction. A leader raising their own bid is only
// charged the difference. Retrying with the same idempotency key
// returns the recorded bid without charging again.
func (s *Service) Bid(ctx context.Context, user *authModels.AuthenticatedUser, auctionID primitive.ObjectID, amount int64, idempotencyKey string) (*BidResult, error) {
	ctx, span := handlers.StartSpan(ctx, "auctions.bid",
		attribute.String("auction.id", auctionID.Hex()),
		attribute.Int64("bid.amount", amount),
	)
	defer span.End()

	result, previous, err := s.bid(ctx, user, auctionID, amount, idempotencyKey)
	if err != nil {
		span.RecordError(err)
		metrics.BidsTotal.WithLabelValues(bidRejection(err)).Inc()
		return nil, err
	}
	if result.Replayed {
		metrics.BidsTotal.WithLabelValues("replayed").Inc()
		return result, nil
	}
	metrics.BidsTotal.WithLabelValues("accepted").Inc()

	slog.Info("Bid accepted",
		"auction_id", auctionID.Hex(),
		"user_id", user.UserID,
		"amount", amount)

	s.publish(ctx, models.EventBidPlaced, result.Auction)
	if previous != nil && *previous != result.Bid.UserID {
		err := s.notifier.Notify(ctx, notifModels.Message{
			Recipients: []primitive.ObjectID{*previous},
			Type:       notifModels.TypeOutbid,
			Priority:   notifModels.PriorityHigh,
			Title:      fmt.Sprintf("You were outbid on %s", result.Auction.ItemName),
			Body:       fmt.Sprintf("The price is now %d %s", result.Auction.CurrentPrice, result.Auction.Currency),
			Metadata:   map[string]string{"auction_id": auctionID.Hex()},
		})
		if err != nil {
			slog.Error("Failed to notify outbid user", "auction_id", auctionID.Hex(), "error", err)
		}
	}
	return result, nil
}

func (s *Service) bid(ctx context.Context, user *authModels.AuthenticatedUser, auctionID primitive.ObjectID, amount int64, key string) (*BidResult, *primitive.ObjectID, error) {
	userID, err := primitive.ObjectIDFromHex(user.UserID)
	if err != nil {
		return nil, nil, apperrors.Unauthenticated("invalid session")
	}
	if amount <= 0 {
		return nil, nil, apperrors.Validation("amount must be positive")
	}

	var (
		result   *BidResult
		previous *primitive.ObjectID
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if key != "" {
			replay, err := s.replay(ctx, userID, auctionID, key)
			if err != nil || replay != nil {
				result = replay
				return err
			}
		}

		now := s.now()
		auction, err := s.store.GetByID(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction.Status != models.StatusActive || !now.Before(auction.EndTime) {
			return apperrors.InvalidState("auction is closed")
		}
		if amount <= auction.CurrentPrice {
			return apperrors.Conflict("bid must exceed %d", auction.CurrentPrice)
		}

		bid := &models.Bid{
			ID:             primitive.NewObjectID(),
			AuctionID:      auctionID,
			UserID:         userID,
			Username:       user.Username,
			Amount:         amount,
			IdempotencyKey: key,
			CreatedAt:      now,
		}

		// a leader raising their own bid already holds the current price
		raise := auction.HighestBidder != nil && *auction.HighestBidder == userID
		hold := amount
		if raise {
			hold = amount - auction.CurrentPrice
		}

		_, err = s.wallet.Debit(ctx, walletModels.Entry{
			UserID:         userID,
			Currency:       auction.Currency,
			Amount:         hold,
			Kind:           walletModels.KindBidHold,
			Reference:      "auction:" + auctionID.Hex(),
			IdempotencyKey: "bid:" + bid.ID.Hex() + ":hold",
			CreatedBy:      user.UserID,
		})
		if err != nil {
			return err
		}

		updated, err := s.store.ApplyBid(ctx, models.BidUpdate{
			AuctionID:     auctionID,
			ExpectedPrice: auction.CurrentPrice,
			Amount:        amount,
			BidID:         bid.ID,
			Bidder:        userID,
			BidderName:    user.CharacterName,
		}, now)
		if err != nil {
			return err
		}

		if !raise {
			if err := s.refund(ctx, auction, user.UserID); err != nil {
				return err
			}
		}
		if err := s.store.InsertBid(ctx, bid); err != nil {
			return err
		}

		result = &BidResult{Auction: updated, Bid: bid}
		previous = auction.HighestBidder
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, previous, nil
}

// replay returns the bid already recorded under key, or nil when the key is new
func (s *Service) replay(ctx context.Context, userID, auctionID primitive.ObjectID, key string) (*BidResult, error) {
	bid, err := s.store.FindBidByKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if bid.UserID != userID || bid.AuctionID != auctionID {
		return nil, apperrors.Conflict("idempotency key already used")
	}
	auction, err := s.store.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return &BidResult{Auction: auction, Bid: bid, Replayed: true}, nil
}

// refund returns the hold of the auction's highest bidder as read before the change
func (s *Service) refund(ctx context.Context, auction *models.Auction, actorID string) error {
	if auction.HighestBidder == nil || auction.HighestBidID == nil {
		return nil
	}
	_, err := s.wallet.Credit(ctx, walletModels.Entry{
		UserID:         *auction.HighestBidder,
		Currency:       auction.Currency,
		Amount:         auction.CurrentPrice,
		Kind:           walletModels.KindBidRefund,
		Reference:      "auction:" + auction.ID.Hex(),
		IdempotencyKey: "bid:" + auction.HighestBidID.Hex() + ":refund",
		CreatedBy:      actorID,
	})
	return err
}

func bidRejection(err error) string {
	if kind := apperrors.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// Cancel closes an active auction and puts the item back up. The highest bid is refunded.
func (s *Service) Cancel(ctx context.Context, actor *authModels.AuthenticatedUser, id primitive.ObjectID) (*models.Auction, error) {
	var cancelled *models.Auction
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		auction, err := s.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		cancelled, err = s.store.Cancel(ctx, id, now)
		if err != nil {
			return err
		}
		if err := s.refund(ctx, auction, actor.UserID); err != nil {
			return err
		}
		_, err = s.kills.TransitionItem(ctx, s.release(auction), now)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Auction cancelled", "auction_id", id.Hex(), "by", actor.UserID)
	s.publish(ctx, models.EventAuctionCancelled, cancelled)
	return cancelled, nil
}

// release puts an auctioned item back to expired
func (s *Service) release(auction *models.Auction) killModels.ItemTransition {
	return killModels.ItemTransition{
		KillID: auction.KillID,
		ItemID: auction.ItemID,
		From:   []killModels.ItemStatus{killModels.ItemAuctioned},
		To:     killModels.ItemExpired,
		Unset:  []string{"auction_id"},
	}
}

// SettleDue settles every auction whose end time passed. Each auction is claimed before it
// is processed; a claim abandoned by a crashed run is taken over after claimTimeout. It
// returns the number of auctions settled.
func (s *Service) SettleDue(ctx context.Context, now time.Time) (int, error) {
	settled := 0
	for {
		auction, err := s.store.ClaimDue(ctx, now, now.Add(-claimTimeout))
		if err != nil {
			return settled, err
		}
		if auction == nil {
			return settled, nil
		}

		if err := s.settle(ctx, auction, now); err != nil {
			slog.Error("Failed to settle auction", "auction_id", auction.ID.Hex(), "error", err)
			continue
		}
		settled++
	}
}

func (s *Service) settle(ctx context.Context, auction *models.Auction, now time.Time) error {
	var completed *models.Auction
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		transition := s.release(auction)
		if auction.HighestBidder != nil {
			transition.To = killModels.ItemSold
			transition.Unset = nil
			transition.Set = map[string]interface{}{
				"final_recipient":      *auction.HighestBidder,
				"final_recipient_name": auction.HighestBidderName,
				"assigned_at":          now,
			}
		}
		if _, err := s.kills.TransitionItem(ctx, transition, now); err != nil {
			return err
		}

		var err error
		completed, err = s.store.Complete(ctx, auction.ID, auction.HighestBidder, auction.HighestBidderName, auction.CurrentPrice, now)
		return err
	})
	if err != nil {
		return err
	}

	if completed.Winner == nil {
		metrics.AuctionsSettled.WithLabelValues("unsold").Inc()
		slog.Info("Auction closed without bids", "auction_id", auction.ID.Hex(), "item", auction.ItemName)
	} else {
		metrics.AuctionsSettled.WithLabelValues("sold").Inc()
		slog.Info("Auction settled",
			"auction_id", auction.ID.Hex(),
			"item", auction.ItemName,
			"winner", completed.WinnerName,
			"price", completed.FinalPrice)

		err := s.notifier.Notify(ctx, notifModels.Message{
			Recipients: []primitive.ObjectID{*completed.Winner},
			Type:       notifModels.TypeAuctionWon,
			Priority:   notifModels.PriorityHigh,
			Title:      fmt.Sprintf("You won %s", completed.ItemName),
			Body:       fmt.Sprintf("Final price %d %s", completed.FinalPrice, completed.Currency),
			Metadata:   map[string]string{"auction_id": completed.ID.Hex()},
			DedupeKey:  "auction_won:" + completed.ID.Hex(),
		})
		if err != nil {
			slog.Error("Failed to notify auction winner", "auction_id", auction.ID.Hex(), "error", err)
		}
	}

	s.publish(ctx, models.EventAuctionSettled, completed)
	return nil
}

// PendingCount is the number of items waiting for an auction
func (s *Service) PendingCount(ctx context.Context) (int64, error) {
	return s.kills.CountAuctionable(ctx)
}

// Get returns one auction
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.Auction, error) {
	return s.store.GetByID(ctx, id)
}

// List returns a page of auctions
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]models.Auction, int64, error) {
	switch filter.Status {
	case "", models.StatusActive, models.StatusSettling, models.StatusCompleted, models.StatusCancelled:
	default:
		return nil, 0, apperrors.Validation("unknown auction status %q", filter.Status)
	}
	return s.store.List(ctx, filter)
}

// Bids returns the bids of an auction, highest first
func (s *Service) Bids(ctx context.Context, auctionID primitive.ObjectID) ([]models.Bid, error) {
	if _, err := s.store.GetByID(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.store.ListBids(ctx, auctionID)
}

func (s *Service) publish(ctx context.Context, kind models.EventType, auction *models.Auction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishJSON(ctx, models.EventsChannel, models.NewEvent(kind, auction, s.now())); err != nil {
		slog.Warn("Failed to publish auction event", "auction_id", auction.ID.Hex(), "type", kind, "error", err)
	}
}
