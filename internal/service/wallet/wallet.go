package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type WalletService struct {
	// Repository to access long term data
	storage repository.Storage
}

func NewService(storage repository.Storage) *WalletService {
	return &WalletService{storage: storage}
}

// GetWallet returns the user's wallet, creating an empty one on first access
func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	return s.storage.Wallet().GetOrCreateWallet(ctx, userID)
}

// ListTransactions returns one page of the user's ledger, newest first, and
// the total number of entries. Page counts from 1.
func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, page int, pageSize int) ([]models.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	wallet, err := s.storage.Wallet().GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions wallet: %w", err)
	}

	return s.storage.Wallet().ListTransactions(ctx, wallet.ID, repository.ListTransactionsParams{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
}

// AddEntry records a manual ledger entry: the transaction and the matching
// balance increment commit together, so the wallet can never disagree with
// its transaction history.
func (s *WalletService) AddEntry(ctx context.Context, userID uuid.UUID, txType string, amount decimal.Decimal, description string) (models.Transaction, error) {
	var created models.Transaction

	if !amount.IsPositive() {
		return created, apperrors.ErrTransactionInvalid
	}

	err := s.storage.InTx(ctx, func(store repository.Storage) error {
		wallet, err := store.Wallet().GetOrCreateWallet(ctx, userID)
		if err != nil {
			return fmt.Errorf("entry wallet: %w", err)
		}

		created, err = store.Wallet().CreateTransaction(ctx, models.Transaction{
			WalletID:    wallet.ID,
			Type:        txType,
			Amount:      amount,
			Description: description,
		})
		if err != nil {
			return err
		}

		_, err = store.Wallet().AddToBalance(ctx, wallet.ID, txType, amount)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}

	return created, nil
}
