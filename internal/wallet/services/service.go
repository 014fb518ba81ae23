package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loot-tracker/internal/wallet/models"
	"loot-tracker/pkg/apperrors"
	"loot-tracker/pkg/database"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the persistence the wallet service needs
type Store interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error)
	Debit(ctx context.Context, userID primitive.ObjectID, currency models.Currency, amount int64, at time.Time) (*models.Wallet, error)
	Credit(ctx context.Context, userID primitive.ObjectID, currency models.Currency, amount int64, at time.Time) (*models.Wallet, error)
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID primitive.ObjectID, currency models.Currency, skip, limit int64) ([]models.Transaction, int64, error)
}

// Service moves balances and keeps the ledger. Debit and Credit join the caller's
// transaction when called with a transaction context.
type Service struct {
	store Store
	tx    database.TxRunner
	now   func() time.Time
}

// NewService creates a new service instance
func NewService(store Store, tx database.TxRunner) *Service {
	return &Service{store: store, tx: tx, now: time.Now}
}

// Balance returns the wallet of userID
func (s *Service) Balance(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	return s.store.Get(ctx, userID)
}

// Transactions returns a page of the user's ledger
func (s *Service) Transactions(ctx context.Context, userID primitive.ObjectID, currency models.Currency, skip, limit int64) ([]models.Transaction, int64, error) {
	if currency != "" && !currency.Valid() {
		return nil, 0, apperrors.Validation("unknown currency %q", currency)
	}
	return s.store.ListTransactions(ctx, userID, currency, skip, limit)
}

// Debit takes entry.Amount from the user. An entry whose idempotency key was already
// recorded returns the recorded row without moving funds again.
func (s *Service) Debit(ctx context.Context, entry models.Entry) (*models.Transaction, error) {
	return s.apply(ctx, entry, -1)
}

// Credit gives entry.Amount to the user, idempotently like Debit
func (s *Service) Credit(ctx context.Context, entry models.Entry) (*models.Transaction, error) {
	return s.apply(ctx, entry, 1)
}

func (s *Service) apply(ctx context.Context, entry models.Entry, sign int64) (*models.Transaction, error) {
	if !entry.Currency.Valid() {
		return nil, apperrors.Validation("unknown currency %q", entry.Currency)
	}
	if entry.Amount <= 0 {
		return nil, apperrors.Validation("amount must be positive")
	}

	if entry.IdempotencyKey != "" {
		existing, err := s.store.FindByIdempotencyKey(ctx, entry.IdempotencyKey)
		if err == nil {
			if existing.UserID != entry.UserID || existing.Currency != entry.Currency || existing.Amount != sign*entry.Amount {
				return nil, apperrors.Conflict("idempotency key %q already used for a different entry", entry.IdempotencyKey)
			}
			return existing, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	now := s.now()
	var (
		wallet *models.Wallet
		err    error
	)
	if sign < 0 {
		wallet, err = s.store.Debit(ctx, entry.UserID, entry.Currency, entry.Amount, now)
	} else {
		wallet, err = s.store.Credit(ctx, entry.UserID, entry.Currency, entry.Amount, now)
	}
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		UserID:         entry.UserID,
		Currency:       entry.Currency,
		Amount:         sign * entry.Amount,
		BalanceAfter:   wallet.Balance(entry.Currency),
		Kind:           entry.Kind,
		Reference:      entry.Reference,
		IdempotencyKey: entry.IdempotencyKey,
		CreatedBy:      entry.CreatedBy,
		CreatedAt:      now,
	}
	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// AdjustRequest is an administrative grant or deduction
type AdjustRequest struct {
	UserID         primitive.ObjectID
	Currency       models.Currency
	Amount         int64
	Kind           models.Kind
	Reason         string
	IdempotencyKey string
}

// Adjust grants or deducts currency on behalf of an administrator
func (s *Service) Adjust(ctx context.Context, actorID string, req AdjustRequest) (*models.Transaction, error) {
	if req.Kind != models.KindGrant && req.Kind != models.KindDeduct {
		return nil, apperrors.Validation("kind must be grant or deduct")
	}

	entry := models.Entry{
		UserID:         req.UserID,
		Currency:       req.Currency,
		Amount:         req.Amount,
		Kind:           req.Kind,
		Reference:      req.Reason,
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      actorID,
	}

	var tx *models.Transaction
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if req.Kind == models.KindGrant {
			tx, err = s.Credit(ctx, entry)
		} else {
			tx, err = s.Debit(ctx, entry)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust wallet: %w", err)
	}

	slog.Info("Wallet adjusted",
		"user_id", req.UserID.Hex(),
		"currency", req.Currency,
		"kind", req.Kind,
		"amount", req.Amount,
		"balance_after", tx.BalanceAfter,
		"by", actorID)
	return tx, nil
}
