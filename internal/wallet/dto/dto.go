package dto

import (
	"loot-tracker/internal/wallet/models"
	"loot-tracker/pkg/middleware"
)

// GetWalletInput represents the input for the caller's wallet
type GetWalletInput struct {
	middleware.AuthHeaders
}

// ListTransactionsInput represents the input for the caller's ledger
type ListTransactionsInput struct {
	middleware.AuthHeaders
	Currency string `query:"currency" doc:"Only rows in this currency (diamonds or dkp)"`
	Page     int    `query:"page" minimum:"1" default:"1" doc:"Page number"`
	Limit    int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Items per page"`
}

// AdjustRequest is the body of POST /wallet/adjust
type AdjustRequest struct {
	UserID         string          `json:"user_id" doc:"Account to adjust"`
	Currency       models.Currency `json:"currency" enum:"diamonds,dkp" doc:"Currency to adjust"`
	Amount         int64           `json:"amount" minimum:"1" doc:"Positive amount to grant or deduct"`
	Kind           models.Kind     `json:"kind" enum:"grant,deduct" doc:"Direction of the adjustment"`
	Reason         string          `json:"reason,omitempty" maxLength:"200" doc:"Shown in the ledger"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" maxLength:"100" doc:"Retries with the same key apply once"`
}

// AdjustInput represents the input for an administrative adjustment
type AdjustInput struct {
	middleware.AuthHeaders
	Body AdjustRequest
}

// WalletOutput wraps a wallet
type WalletOutput struct {
	Body models.Wallet
}

// TransactionOutput wraps one ledger row
type TransactionOutput struct {
	Body models.Transaction
}

// ListTransactionsOutput is a page of ledger rows
type ListTransactionsOutput struct {
	Body struct {
		Transactions []models.Transaction `json:"transactions"`
		Total        int64                `json:"total"`
		Page         int                  `json:"page"`
		Limit        int                  `json:"limit"`
	}
}
