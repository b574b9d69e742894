package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rootzapp/rootz/internal/db"
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
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	purchaseAmount, err := decimal.NewFromString(c.PurchaseAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid purchase amount %q: %w", c.PurchaseAmount, err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey}, storage.Refresh())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	userService := user.NewService(user.DefaultHasher, storage)
	authService, err := auth.NewService(auth.Config{}, tokenManager, userService)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	shopService := shop.NewService(storage)
	walletService := wallet.NewService(storage)
	resolver := referral.NewResolver(referral.Config{RootEmail: c.RootEmail}, storage)
	settlementService := settlement.NewService(
		settlement.Config{PurchaseAmount: purchaseAmount},
		storage,
		resolver,
		logger,
	)
	profileService := earnings.NewService(storage)

	mux := handlers.NewRouter(
		authService,
		shopService,
		walletService,
		settlementService,
		profileService,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
