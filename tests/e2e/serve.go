package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/rootzapp/rootz/internal/handlers"
	"github.com/rootzapp/rootz/internal/logger"
	"github.com/rootzapp/rootz/internal/repository/postgres"
	"github.com/rootzapp/rootz/internal/service/auth"
	"github.com/rootzapp/rootz/internal/service/auth/tokenmanager"
	"github.com/rootzapp/rootz/internal/service/earnings"
	"github.com/rootzapp/rootz/internal/service/referral"
	"github.com/rootzapp/rootz/internal/service/settlement"
	"github.com/rootzapp/rootz/internal/service/shop"
	"github.com/rootzapp/rootz/internal/service/user"
	"github.com/rootzapp/rootz/internal/service/wallet"
	"github.com/rootzapp/rootz/internal/testutil"
)

type Services struct {
	AuthService       *auth.AuthService
	UserService       *user.UserService
	ShopService       *shop.ShopService
	WalletService     *wallet.WalletService
	SettlementService *settlement.Service
	EarningsService   *earnings.Service
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.WithTx with it
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"}, storage.Refresh())
		require.NoError(t, err, "token manager should be created without errors")

		us := user.NewService(user.DefaultHasher, storage)

		as, err := auth.NewService(auth.Config{}, tokenManager, us)
		require.NoError(t, err, "auth service starting error", err)

		ss := shop.NewService(storage)
		ws := wallet.NewService(storage)
		resolver := referral.NewResolver(referral.Config{}, storage)
		sts := settlement.NewService(settlement.Config{}, storage, resolver, logger.NewNoOp())
		es := earnings.NewService(storage)

		// Complete all together as router
		router := handlers.NewRouter(as, ss, ws, sts, es, logger.NewNoOp())

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			AuthService:       as,
			UserService:       us,
			ShopService:       ss,
			WalletService:     ws,
			SettlementService: sts,
			EarningsService:   es,
		})
	})
}
