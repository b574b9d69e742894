package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeEarned    = "earned"
	TransactionTypeWaiting   = "waiting"
	TransactionTypeApproved  = "approved"
	TransactionTypeWithdrawn = "withdrawn"
)

// TransactionTypes lists every valid transaction type
var TransactionTypes = []string{
	TransactionTypeEarned,
	TransactionTypeWaiting,
	TransactionTypeApproved,
	TransactionTypeWithdrawn,
}

// Wallet is the ledger account of a single user, one per user.
// Earned must always equal the sum of 'earned' transactions on the wallet.
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Earned    decimal.Decimal
	Waiting   decimal.Decimal
	Approved  decimal.Decimal
	Withdrawn decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an immutable ledger entry of a wallet.
// FromUserID points to the buyer whose purchase generated the entry,
// ShopID to the shop the purchase happened at. Both are lookup relations
// and may be nil for manual entries.
type Transaction struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	Type        string
	Amount      decimal.Decimal
	Description string
	FromUserID  *uuid.UUID
	ShopID      *uuid.UUID
	CreatedAt   time.Time
}
