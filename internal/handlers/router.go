package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rootzapp/rootz/internal/handlers/middleware"
	"github.com/rootzapp/rootz/internal/logger"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
	"github.com/rootzapp/rootz/internal/service/auth"
	"github.com/rootzapp/rootz/internal/service/earnings"
	"github.com/rootzapp/rootz/internal/service/settlement"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	shopService shopService,
	walletService walletService,
	settlementService settlementService,
	profileService profileService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apiauth := http.NewServeMux()
	apiauth.Handle("POST /register", handleRegister(authService, logger))
	apiauth.Handle("POST /login", handleLogin(authService, logger))
	apiauth.Handle("POST /refresh", handleTokenRefresh(authService, logger))

	apishops := http.NewServeMux()
	apishops.Handle("GET /", handleListShops(shopService, logger))
	apishops.Handle("GET /search", handleSearchShops(shopService, logger))
	apishops.Handle("POST /", handleCreateShop(shopService, logger))
	apishops.Handle("POST /by-url", handleShopByURL(shopService, logger))
	apishops.Handle("POST /{id}/visit", handleShopVisit(shopService, logger))

	apiuser := http.NewServeMux()
	apiuser.Handle("GET /me", withAuth(handleUserMe()))
	apiuser.Handle("GET /profile", withAuth(handleProfile(profileService, logger)))
	apiuser.Handle("GET /wallet", withAuth(handleGetWallet(walletService, logger)))
	apiuser.Handle("GET /wallet/transactions", withAuth(handleListTransactions(walletService, logger)))
	apiuser.Handle("POST /wallet/transactions", withAuth(handleAddTransaction(walletService, logger)))
	apiuser.Handle("POST /wallet/purchase", withAuth(handlePurchase(settlementService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", apiauth))
	root.Handle("/api/shops/", http.StripPrefix("/api/shops", apishops))
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with optional referrer
	// Has to return apperrors.ErrUserAlreadyExists if the email is taken and
	// apperrors.ErrUserNotFound if the referrer is unknown
	Register(ctx context.Context, arg auth.RegisterArgs) (models.TokenPair, error)

	// Login user with email and password
	// Has to return apperrors.ErrUserNotFound if credentials don't match
	Login(ctx context.Context, email string, password string) (models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Set auth tokens (access, refresh) to response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from request
	GetRefreshString(r *http.Request) (string, error)

	// Get request and return user if it authenticated or error
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

type shopService interface {
	CreateShop(ctx context.Context, arg repository.CreateShopParams) (models.Shop, error)
	ListShops(ctx context.Context) ([]models.Shop, error)
	SearchShops(ctx context.Context, query string) ([]models.Shop, error)
	GetShopByURL(ctx context.Context, rawURL string) (models.Shop, error)
	Visit(ctx context.Context, id uuid.UUID) (models.Shop, error)
}

type walletService interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page int, pageSize int) ([]models.Transaction, int64, error)
	AddEntry(ctx context.Context, userID uuid.UUID, txType string, amount decimal.Decimal, description string) (models.Transaction, error)
}

type settlementService interface {
	Settle(ctx context.Context, buyerID uuid.UUID, shopID uuid.UUID) (settlement.Result, error)
}

type profileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (earnings.Profile, error)
}
