package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
)

type WalletRepo struct {
	DB DBTX
}

// Transaction type to wallet balance column. Also the whitelist that keeps
// user supplied types out of query text.
var balanceColumns = map[string]string{
	models.TransactionTypeEarned:    "earned",
	models.TransactionTypeWaiting:   "waiting",
	models.TransactionTypeApproved:  "approved",
	models.TransactionTypeWithdrawn: "withdrawn",
}

// Create wallet for the user or return the existing one as is
// The unique index on user_id resolves concurrent creation races
const getOrCreateWallet = `-- name: GetOrCreateWallet
WITH new_wallet AS (
	INSERT INTO wallets (user_id)
	VALUES ($1)
	ON CONFLICT (user_id) DO NOTHING
	RETURNING id, user_id, earned, waiting, approved, withdrawn, created_at, updated_at
)
SELECT id, user_id, earned, waiting, approved, withdrawn, created_at, updated_at FROM new_wallet
UNION
SELECT id, user_id, earned, waiting, approved, withdrawn, created_at, updated_at FROM wallets WHERE user_id = $1
`

func (r *WalletRepo) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	// The statement can lose an insert race: when a concurrent transaction
	// commits the row after this statement's snapshot was taken, the insert
	// arm conflicts away and the select arm still sees nothing. A retried
	// statement runs on a fresh snapshot and finds the row.
	for range 3 {
		rows, _ := r.DB.Query(ctx, getOrCreateWallet, userID)
		wallet, err := pgx.CollectOneRow(rows, rowToWallet)

		switch {
		case err == nil:
			return wallet, nil
		case errors.Is(err, pgx.ErrNoRows):
			continue
		default:
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return wallet, fmt.Errorf("wallet owner missing: %w", apperrors.ErrUserNotFound)
			}
			return wallet, fmt.Errorf("db error: %w", err)
		}
	}

	return models.Wallet{}, fmt.Errorf("wallet of %s: lost creation race repeatedly", userID)
}

const getWallet = `-- name: GetWallet
SELECT id, user_id, earned, waiting, approved, withdrawn, created_at, updated_at
FROM wallets
WHERE user_id = $1
`

func (r *WalletRepo) GetWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, getWallet, userID)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

// AddToBalance increments one balance column in place. The UPDATE takes a row
// lock, so overlapping settlements against the same wallet queue up instead of
// overwriting each other.
func (r *WalletRepo) AddToBalance(ctx context.Context, walletID uuid.UUID, txType string, amount decimal.Decimal) (models.Wallet, error) {
	var wallet models.Wallet

	column, ok := balanceColumns[txType]
	if !ok || !amount.IsPositive() {
		return wallet, apperrors.ErrTransactionInvalid
	}

	query := fmt.Sprintf(`-- name: AddToBalance
	UPDATE wallets
	SET %s = %s + $2, updated_at = now()
	WHERE id = $1
	RETURNING id, user_id, earned, waiting, approved, withdrawn, created_at, updated_at
	`, column, column)

	rows, _ := r.DB.Query(ctx, query, walletID, amount)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, wallet_id, type, amount, description, from_user_id, shop_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, wallet_id, type, amount, description, from_user_id, shop_id, created_at
`

func (r *WalletRepo) CreateTransaction(ctx context.Context, transaction models.Transaction) (models.Transaction, error) {
	if _, ok := balanceColumns[transaction.Type]; !ok || transaction.Amount.IsNegative() {
		return transaction, apperrors.ErrTransactionInvalid
	}

	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createTransaction,
		transaction.ID,
		transaction.WalletID,
		transaction.Type,
		transaction.Amount,
		transaction.Description,
		transaction.FromUserID,
		transaction.ShopID,
		transaction.CreatedAt,
	)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return created, fmt.Errorf("transaction wallet missing: %w", apperrors.ErrWalletNotFound)
		}
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const countTransactions = `-- name: CountTransactions
SELECT count(*)
FROM transactions
WHERE wallet_id = $1
  AND ($2::text[] IS NULL OR type = ANY ($2::text[]))
`

const listTransactions = `-- name: ListTransactions
SELECT id, wallet_id, type, amount, description, from_user_id, shop_id, created_at
FROM transactions
WHERE wallet_id = $1
  AND ($2::text[] IS NULL OR type = ANY ($2::text[]))
ORDER BY created_at DESC, id DESC
LIMIT NULLIF($3, 0) OFFSET $4
`

func (r *WalletRepo) ListTransactions(ctx context.Context, walletID uuid.UUID, arg repository.ListTransactionsParams) ([]models.Transaction, int64, error) {
	var types []string
	if len(arg.Types) > 0 {
		types = arg.Types
	}

	limit := max(arg.Limit, 0)
	offset := max(arg.Offset, 0)

	var total int64
	err := r.DB.QueryRow(ctx, countTransactions, walletID, types).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	rows, _ := r.DB.Query(ctx, listTransactions, walletID, types, limit, offset)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return transactions, total, nil
}

const sumEarnedByFromUser = `-- name: SumEarnedByFromUser
SELECT from_user_id, sum(amount)
FROM transactions
WHERE wallet_id = $1 AND type = 'earned' AND from_user_id IS NOT NULL
GROUP BY from_user_id
`

func (r *WalletRepo) SumEarnedByFromUser(ctx context.Context, walletID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	rows, _ := r.DB.Query(ctx, sumEarnedByFromUser, walletID)

	sums := map[uuid.UUID]decimal.Decimal{}
	_, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (struct{}, error) {
		var fromUserID uuid.UUID
		var amount decimal.Decimal

		err := row.Scan(&fromUserID, &amount)
		if err == nil {
			sums[fromUserID] = amount
		}
		return struct{}{}, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return sums, nil
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Earned, &w.Waiting, &w.Approved, &w.Withdrawn, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Description, &t.FromUserID, &t.ShopID, &t.CreatedAt)
	return t, err
}
