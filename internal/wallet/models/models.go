package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	WalletsCollection      = "wallets"
	TransactionsCollection = "wallet_transactions"
)

// Currency is one of the guild's virtual currencies
type Currency string

const (
	CurrencyDiamonds Currency = "diamonds"
	CurrencyDKP      Currency = "dkp"
)

// Valid reports whether c is a known currency
func (c Currency) Valid() bool {
	return c == CurrencyDiamonds || c == CurrencyDKP
}

// Field is the wallet document field holding the balance of c
func (c Currency) Field() string {
	return string(c)
}

// Kind classifies a ledger row
type Kind string

const (
	KindGrant     Kind = "grant"
	KindDeduct    Kind = "deduct"
	KindBidHold   Kind = "bid_hold"
	KindBidRefund Kind = "bid_refund"
)

// Wallet holds a user's balances
type Wallet struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Diamonds  int64              `bson:"diamonds" json:"diamonds"`
	DKP       int64              `bson:"dkp" json:"dkp"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Balance returns the balance held in currency
func (w *Wallet) Balance(currency Currency) int64 {
	if currency == CurrencyDKP {
		return w.DKP
	}
	return w.Diamonds
}

// Transaction is one append-only ledger row. Amount is signed.
type Transaction struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	Currency       Currency           `bson:"currency" json:"currency"`
	Amount         int64              `bson:"amount" json:"amount"`
	BalanceAfter   int64              `bson:"balance_after" json:"balance_after"`
	Kind           Kind               `bson:"kind" json:"kind"`
	Reference      string             `bson:"reference,omitempty" json:"reference,omitempty"`
	IdempotencyKey string             `bson:"idempotency_key,omitempty" json:"-"`
	CreatedBy      string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// Entry describes one balance movement. Amount is always positive; the direction comes
// from the operation applied.
type Entry struct {
	UserID         primitive.ObjectID
	Currency       Currency
	Amount         int64
	Kind           Kind
	Reference      string
	IdempotencyKey string
	CreatedBy      string
}
