package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
	"github.com/rootzapp/rootz/internal/repository/postgres"
	"github.com/rootzapp/rootz/internal/service/referral"
	"github.com/rootzapp/rootz/internal/testutil"
)

var errInjected = errors.New("injected storage failure")

// flakyStorage fails the n-th CreateTransaction call, everything else passes
// through untouched
type flakyStorage struct {
	repository.Storage
	failOn int
	calls  *int
}

func (s *flakyStorage) Wallet() repository.WalletRepo {
	return &flakyWallet{WalletRepo: s.Storage.Wallet(), failOn: s.failOn, calls: s.calls}
}

func (s *flakyStorage) InTx(ctx context.Context, fn func(repository.Storage) error) error {
	return s.Storage.InTx(ctx, func(store repository.Storage) error {
		return fn(&flakyStorage{Storage: store, failOn: s.failOn, calls: s.calls})
	})
}

type flakyWallet struct {
	repository.WalletRepo
	failOn int
	calls  *int
}

func (w *flakyWallet) CreateTransaction(ctx context.Context, transaction models.Transaction) (models.Transaction, error) {
	*w.calls++
	if *w.calls == w.failOn {
		return models.Transaction{}, errInjected
	}
	return w.WalletRepo.CreateTransaction(ctx, transaction)
}

func TestSettlement(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	createUser := func(t *testing.T, storage repository.Storage, email string, parentID *uuid.UUID) models.User {
		t.Helper()
		user, err := storage.User().CreateUser(t.Context(), repository.CreateUserParams{
			Name:         email,
			Email:        email,
			PasswordHash: "hash",
			ParentID:     parentID,
		})
		require.NoError(t, err)
		return user
	}

	createShop := func(t *testing.T, storage repository.Storage, title string, discount string) models.Shop {
		t.Helper()
		shop, err := storage.Shop().CreateShop(t.Context(), repository.CreateShopParams{
			Title:    title,
			Discount: discount,
			SiteURL:  "https://" + title + ".example.com",
		})
		require.NoError(t, err)
		return shop
	}

	earned := func(t *testing.T, storage repository.Storage, userID uuid.UUID) decimal.Decimal {
		t.Helper()
		wallet, err := storage.Wallet().GetWallet(t.Context(), userID)
		require.NoError(t, err)
		return wallet.Earned
	}

	inTx := func(t *testing.T, fn func(storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			fn(postgres.NewStorage(tx))
		})
	}

	t.Run("full referral chain", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			grandparent := createUser(t, storage, "gp@example.com", nil)
			parent := createUser(t, storage, "p@example.com", &grandparent.ID)
			buyer := createUser(t, storage, "b@example.com", &parent.ID)
			shop := createShop(t, storage, "acme", "8%")

			resolver := referral.NewResolver(referral.Config{}, storage)
			s := NewService(Config{}, storage, resolver, nil)

			result, err := s.Settle(t.Context(), buyer.ID, shop.ID)

			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, result.PurchaseID)
			require.True(t, result.Commission.Total.Equal(decimal.RequireFromString("8.00")), "got %s", result.Commission.Total)

			// One transaction per role: buyer, parent, grandparent, company
			require.Len(t, result.Transactions, 4)
			for _, txn := range result.Transactions {
				require.Equal(t, models.TransactionTypeEarned, txn.Type)
				require.NotNil(t, txn.FromUserID)
				require.Equal(t, buyer.ID, *txn.FromUserID)
				require.NotNil(t, txn.ShopID)
				require.Equal(t, shop.ID, *txn.ShopID)
			}

			root, err := resolver.Root(t.Context())
			require.NoError(t, err)

			require.True(t, earned(t, storage, buyer.ID).Equal(decimal.RequireFromString("4.00")))
			require.True(t, earned(t, storage, parent.ID).Equal(decimal.RequireFromString("2.00")))
			require.True(t, earned(t, storage, grandparent.ID).Equal(decimal.RequireFromString("1.00")))
			require.True(t, earned(t, storage, root.ID).Equal(decimal.RequireFromString("1.00")))
		})
	})

	t.Run("parentless buyer pays root three roles", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			buyer := createUser(t, storage, "alone@example.com", nil)
			shop := createShop(t, storage, "solo", "8%")

			resolver := referral.NewResolver(referral.Config{}, storage)
			s := NewService(Config{PurchaseAmount: decimal.NewFromInt(10)}, storage, resolver, nil)

			result, err := s.Settle(t.Context(), buyer.ID, shop.ID)

			require.NoError(t, err)
			require.Len(t, result.Transactions, 4, "roles stay distinct even when wallets merge")

			root, err := resolver.Root(t.Context())
			require.NoError(t, err)

			// Parent, grandparent and company shares merge into one root credit
			require.True(t, earned(t, storage, buyer.ID).Equal(decimal.RequireFromString("0.40")))
			require.True(t, earned(t, storage, root.ID).Equal(decimal.RequireFromString("0.40")), "got %s", earned(t, storage, root.ID))

			// But the ledger still shows three root entries
			rootWallet, err := storage.Wallet().GetWallet(t.Context(), root.ID)
			require.NoError(t, err)
			_, total, err := storage.Wallet().ListTransactions(t.Context(), rootWallet.ID, repository.ListTransactionsParams{})
			require.NoError(t, err)
			require.Equal(t, int64(3), total)
		})
	})

	t.Run("root buyer keeps everything", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			resolver := referral.NewResolver(referral.Config{}, storage)
			root, err := resolver.Root(t.Context())
			require.NoError(t, err)
			shop := createShop(t, storage, "own", "8%")

			s := NewService(Config{}, storage, resolver, nil)
			_, err = s.Settle(t.Context(), root.ID, shop.ID)

			require.NoError(t, err)
			require.True(t, earned(t, storage, root.ID).Equal(decimal.RequireFromString("8.00")), "root should keep the whole cashback")
		})
	})

	t.Run("unknown buyer", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			shop := createShop(t, storage, "nobuyer", "8%")
			s := NewService(Config{}, storage, referral.NewResolver(referral.Config{}, storage), nil)

			_, err := s.Settle(t.Context(), uuid.New(), shop.ID)

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			require.NotErrorIs(t, err, apperrors.ErrSettlementFailed, "lookup failures are not retryable settlements")
		})
	})

	t.Run("unknown shop", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			buyer := createUser(t, storage, "noshop@example.com", nil)
			s := NewService(Config{}, storage, referral.NewResolver(referral.Config{}, storage), nil)

			_, err := s.Settle(t.Context(), buyer.ID, uuid.New())

			require.ErrorIs(t, err, apperrors.ErrShopNotFound)
		})
	})

	t.Run("broken shop discount", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			buyer := createUser(t, storage, "baddiscount@example.com", nil)
			shop := createShop(t, storage, "bad", "not-a-discount")
			s := NewService(Config{}, storage, referral.NewResolver(referral.Config{}, storage), nil)

			_, err := s.Settle(t.Context(), buyer.ID, shop.ID)

			require.ErrorIs(t, err, apperrors.ErrInvalidDiscount)
		})
	})

	t.Run("mid settlement failure rolls everything back", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			parent := createUser(t, storage, "atomic-p@example.com", nil)
			buyer := createUser(t, storage, "atomic-b@example.com", &parent.ID)
			shop := createShop(t, storage, "atomic", "8%")

			resolver := referral.NewResolver(referral.Config{}, storage)

			// Fail the third of the four transaction inserts
			calls := 0
			flaky := &flakyStorage{Storage: storage, failOn: 3, calls: &calls}
			s := NewService(Config{}, flaky, resolver, nil)

			_, err := s.Settle(t.Context(), buyer.ID, shop.ID)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrSettlementFailed, "should surface as retryable settlement failure")
			require.ErrorIs(t, err, errInjected)

			// Nothing may stick: no balances, no ledger rows
			root, err := resolver.Root(t.Context())
			require.NoError(t, err)
			for _, userID := range []uuid.UUID{buyer.ID, parent.ID, root.ID} {
				wallet, err := storage.Wallet().GetOrCreateWallet(t.Context(), userID)
				require.NoError(t, err)
				require.True(t, wallet.Earned.IsZero(), "wallet %s must stay empty", userID)

				_, total, err := storage.Wallet().ListTransactions(t.Context(), wallet.ID, repository.ListTransactionsParams{})
				require.NoError(t, err)
				require.Equal(t, int64(0), total, "ledger of %s must stay empty", userID)
			}

			// Retry works once the storage behaves
			retry := NewService(Config{}, storage, resolver, nil)
			_, err = retry.Settle(t.Context(), buyer.ID, shop.ID)
			require.NoError(t, err, "settlement should be retryable after a failure")
		})
	})

	t.Run("concurrent settlements lose no update", func(t *testing.T) {
		// Runs against the pool directly: concurrency needs real parallel
		// connections, not savepoints on a single test transaction
		storage := postgres.NewStorage(pg.Pool)

		parent := createUser(t, storage, "hot-parent@example.com", nil)
		shop := createShop(t, storage, "hot", "8%")

		const buyers = 10
		const purchasesPerBuyer = 5

		buyerIDs := make([]uuid.UUID, buyers)
		for i := range buyerIDs {
			buyer := createUser(t, storage, fmt.Sprintf("hot-buyer-%d@example.com", i), &parent.ID)
			buyerIDs[i] = buyer.ID
		}

		resolver := referral.NewResolver(referral.Config{}, storage)
		s := NewService(Config{}, storage, resolver, nil)

		var wg sync.WaitGroup
		errs := make(chan error, buyers*purchasesPerBuyer)
		for _, buyerID := range buyerIDs {
			for range purchasesPerBuyer {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Settle(context.Background(), buyerID, shop.ID)
					errs <- err
				}()
			}
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		// Every purchase pays the shared parent 2.00, all must survive
		expected := decimal.NewFromInt(2).Mul(decimal.NewFromInt(buyers * purchasesPerBuyer))
		got := earned(t, storage, parent.ID)
		require.True(t, got.Equal(expected), "parent earned %s, expected %s", got, expected)

		// And the parent ledger carries one entry per purchase
		parentWallet, err := storage.Wallet().GetWallet(t.Context(), parent.ID)
		require.NoError(t, err)
		_, total, err := storage.Wallet().ListTransactions(t.Context(), parentWallet.ID, repository.ListTransactionsParams{})
		require.NoError(t, err)
		require.Equal(t, int64(buyers*purchasesPerBuyer), total)
	})
}
