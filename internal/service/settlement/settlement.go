// Package settlement applies one simulated purchase to every affected wallet
// as a single all-or-nothing ledger unit.
package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/logger"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
	"github.com/rootzapp/rootz/internal/service/commission"
	"github.com/rootzapp/rootz/internal/service/referral"
)

// DefaultPurchaseAmount is the fixed notional amount of a simulated purchase.
// Purchases carry no real money, the caller never supplies an amount.
var DefaultPurchaseAmount = decimal.NewFromInt(100)

type Config struct {
	// Notional purchase amount
	// If not set than default is used
	PurchaseAmount decimal.Decimal
}

// Result of a committed settlement: the four role transactions in order
// buyer, parent, grandparent, company.
type Result struct {
	PurchaseID   uuid.UUID
	Commission   commission.Commission
	Transactions []models.Transaction
}

type Service struct {
	storage  repository.Storage
	resolver *referral.Resolver
	amount   decimal.Decimal
	logger   logger.Logger
}

func NewService(cfg Config, storage repository.Storage, resolver *referral.Resolver, l logger.Logger) *Service {
	if cfg.PurchaseAmount.IsZero() {
		cfg.PurchaseAmount = DefaultPurchaseAmount
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Service{
		storage:  storage,
		resolver: resolver,
		amount:   cfg.PurchaseAmount,
		logger:   l,
	}
}

// One logical role of a settlement. Roles map to wallets many-to-one: the
// same account may be parent and grandparent at once.
type share struct {
	user        models.User
	amount      decimal.Decimal
	description string
}

// Settle simulates a purchase of buyer at shop and credits the cashback split
// to buyer, parent, grandparent and company wallets atomically.
//
// The settlement has exactly two terminal states. Either every wallet
// increment and every transaction row is committed, or nothing is: any
// failure inside the unit rolls the whole purchase back and surfaces as
// apperrors.ErrSettlementFailed, which is safe to retry.
func (s *Service) Settle(ctx context.Context, buyerID uuid.UUID, shopID uuid.UUID) (Result, error) {
	var result Result

	buyer, err := s.storage.User().GetUserByID(ctx, buyerID)
	if err != nil {
		return result, fmt.Errorf("settle buyer: %w", err)
	}

	shop, err := s.storage.Shop().GetShopByID(ctx, shopID)
	if err != nil {
		return result, fmt.Errorf("settle shop: %w", err)
	}

	split, err := commission.Split(s.amount, shop.Discount)
	if err != nil {
		return result, err
	}

	// Ancestors and the root account resolve outside the ledger unit: lazy
	// root creation must survive even if this settlement aborts.
	parent, grandparent, err := s.resolver.Resolve(ctx, buyer)
	if err != nil {
		return result, err
	}
	company, err := s.resolver.Root(ctx)
	if err != nil {
		return result, err
	}

	purchaseID := uuid.New()
	shares := []share{
		{buyer, split.Buyer, fmt.Sprintf("Cashback for purchase at %s (purchase %s)", shop.Title, purchaseID)},
		{parent, split.Parent, fmt.Sprintf("Referral commission from %s (purchase %s)", buyer.Name, purchaseID)},
		{grandparent, split.Grandparent, fmt.Sprintf("Second level referral commission from %s (purchase %s)", buyer.Name, purchaseID)},
		{company, split.Company, fmt.Sprintf("Company share for purchase at %s (purchase %s)", shop.Title, purchaseID)},
	}

	transactions, err := s.apply(ctx, buyer, shop, shares)
	if err != nil {
		return result, fmt.Errorf("%w. Err: %w", apperrors.ErrSettlementFailed, err)
	}

	s.logger.Info("settlement committed",
		"purchase_id", purchaseID,
		"buyer_id", buyer.ID,
		"shop_id", shop.ID,
		"total", split.Total,
	)

	return Result{
		PurchaseID:   purchaseID,
		Commission:   split,
		Transactions: transactions,
	}, nil
}

// apply runs the atomic part: wallet loads, merged balance increments and one
// transaction row per role, all inside one database transaction.
func (s *Service) apply(ctx context.Context, buyer models.User, shop models.Shop, shares []share) ([]models.Transaction, error) {
	var transactions []models.Transaction

	err := s.storage.InTx(ctx, func(store repository.Storage) error {
		// Load (or lazily create) each distinct wallet exactly once. Loading
		// one wallet twice and writing it back per role would lose the first
		// write, so shares merge by wallet id below.
		walletByUser := map[uuid.UUID]models.Wallet{}
		var walletOrder []uuid.UUID

		for _, sh := range shares {
			if _, ok := walletByUser[sh.user.ID]; ok {
				continue
			}

			wallet, err := store.Wallet().GetOrCreateWallet(ctx, sh.user.ID)
			if err != nil {
				return fmt.Errorf("wallet of %s: %w", sh.user.ID, err)
			}
			walletByUser[sh.user.ID] = wallet
			walletOrder = append(walletOrder, wallet.ID)
		}

		// One transaction row per logical role, independent of wallet dedup
		for _, sh := range shares {
			created, err := store.Wallet().CreateTransaction(ctx, models.Transaction{
				WalletID:    walletByUser[sh.user.ID].ID,
				Type:        models.TransactionTypeEarned,
				Amount:      sh.amount,
				Description: sh.description,
				FromUserID:  &buyer.ID,
				ShopID:      &shop.ID,
			})
			if err != nil {
				return fmt.Errorf("transaction for %s: %w", sh.user.ID, err)
			}
			transactions = append(transactions, created)
		}

		// One merged increment per distinct wallet
		increments := map[uuid.UUID]decimal.Decimal{}
		for _, sh := range shares {
			walletID := walletByUser[sh.user.ID].ID
			increments[walletID] = increments[walletID].Add(sh.amount)
		}

		for _, walletID := range walletOrder {
			increment := increments[walletID]
			if !increment.IsPositive() {
				continue
			}

			_, err := store.Wallet().AddToBalance(ctx, walletID, models.TransactionTypeEarned, increment)
			if err != nil {
				return fmt.Errorf("credit wallet %s: %w", walletID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
