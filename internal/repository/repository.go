package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rootzapp/rootz/internal/models"
)

type CreateUserParams struct {
	Name          string
	Email         string
	PasswordHash  string
	EmailVerified bool
	ParentID      *uuid.UUID
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Create user or return the existing one with the same email.
	// Safe to race: concurrent callers get the same row back.
	GetOrCreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or normalized email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// All users whose parent is parentID, ordered by (created_at, id)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.User, error)
}

type CreateShopParams struct {
	Title       string
	Image       string
	Discount    string
	SiteURL     string
	Description string
}

// Shop repository interface
type ShopRepo interface {
	CreateShop(ctx context.Context, arg CreateShopParams) (models.Shop, error)

	// If shop not found must return apperrors.ErrShopNotFound
	GetShopByID(ctx context.Context, id uuid.UUID) (models.Shop, error)
	GetShopByURL(ctx context.Context, origin string) (models.Shop, error)

	ListShops(ctx context.Context) ([]models.Shop, error)
	SearchShops(ctx context.Context, query string) ([]models.Shop, error)

	// Bump click counter and return the updated shop
	IncrementClicks(ctx context.Context, id uuid.UUID) (models.Shop, error)
}

type ListTransactionsParams struct {
	// Types to filter by, nil or empty means all
	Types []string

	// Page slicing. Limit <= 0 means no limit
	Limit  int
	Offset int
}

// Wallet repository interface
// Wallets are the only mutable shared records of the ledger, transactions are
// append-only.
type WalletRepo interface {
	// Get wallet of the user, creating it if absent.
	// Safe to race: concurrent callers get the same wallet back.
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)

	// Get wallet of the user
	// If wallet not found must return apperrors.ErrWalletNotFound
	GetWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)

	// Atomically increment the balance column matching the transaction type
	// by amount. Amount must be positive. The increment takes a row lock, so
	// concurrent settlements against one wallet serialize here and no update
	// is lost.
	AddToBalance(ctx context.Context, walletID uuid.UUID, txType string, amount decimal.Decimal) (models.Wallet, error)

	// Append an immutable ledger entry
	CreateTransaction(ctx context.Context, transaction models.Transaction) (models.Transaction, error)

	// List wallet transactions newest first with the total count
	ListTransactions(ctx context.Context, walletID uuid.UUID, arg ListTransactionsParams) ([]models.Transaction, int64, error)

	// Sum of 'earned' transactions on the wallet grouped by from_user_id.
	// Entries without from_user_id are skipped.
	SumEarnedByFromUser(ctx context.Context, walletID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Save token
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the token and mark it used in one shot
	// If the token is used already must return apperrors.ErrRefreshTokenIsUsed
	// If the token not found must return apperrors.ErrRefreshTokenNotFound
	GetAndMarkUsed(ctx context.Context, tokenString string) (models.RefreshToken, error)
}

// Storage bundles every repository over one database handle.
// InTx runs fn against a storage bound to a single database transaction:
// fn returning nil commits, anything else rolls every write back.
type Storage interface {
	User() UserRepo
	Shop() ShopRepo
	Wallet() WalletRepo
	Refresh() RefreshTokenRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}
