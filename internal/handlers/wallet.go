package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/handlers/render"
	"github.com/rootzapp/rootz/internal/handlers/userctx"
	"github.com/rootzapp/rootz/internal/logger"
	"github.com/rootzapp/rootz/internal/models"
)

type walletResponse struct {
	ID        uuid.UUID `json:"id"`
	Earned    float64   `json:"earned"`
	Waiting   float64   `json:"waiting"`
	Approved  float64   `json:"approved"`
	Withdrawn float64   `json:"withdrawn"`
}

func walletToResponse(wallet models.Wallet) walletResponse {
	earned, _ := wallet.Earned.Float64()
	waiting, _ := wallet.Waiting.Float64()
	approved, _ := wallet.Approved.Float64()
	withdrawn, _ := wallet.Withdrawn.Float64()

	return walletResponse{
		ID:        wallet.ID,
		Earned:    earned,
		Waiting:   waiting,
		Approved:  approved,
		Withdrawn: withdrawn,
	}
}

type transactionResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	FromUser    *uuid.UUID `json:"from_user,omitempty"`
	Shop        *uuid.UUID `json:"shop,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func transactionToResponse(tx models.Transaction) transactionResponse {
	amount, _ := tx.Amount.Float64()

	return transactionResponse{
		ID:          tx.ID,
		Type:        tx.Type,
		Amount:      amount,
		Description: tx.Description,
		FromUser:    tx.FromUserID,
		Shop:        tx.ShopID,
		CreatedAt:   tx.CreatedAt,
	}
}

func handleGetWallet(walletService walletService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		wallet, err := walletService.GetWallet(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to get wallet", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, walletToResponse(wallet))
	})
}

func handleListTransactions(walletService walletService, l logger.Logger) http.Handler {
	type response struct {
		Transactions []transactionResponse `json:"transactions"`
		Total        int64                 `json:"total"`
		Page         int                   `json:"page"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		page := queryInt(r, "page", 1)
		pageSize := queryInt(r, "page_size", 0)

		transactions, total, err := walletService.ListTransactions(r.Context(), user.ID, page, pageSize)
		if err != nil {
			l.Error("Failed to list transactions", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		items := make([]transactionResponse, 0, len(transactions))
		for _, tx := range transactions {
			items = append(items, transactionToResponse(tx))
		}

		render.JSON(w, response{Transactions: items, Total: total, Page: page})
	})
}

func handleAddTransaction(walletService walletService, l logger.Logger) http.Handler {
	// Amount travels as a decimal string, float64 must not touch money on
	// the write path
	type request struct {
		Type        string `json:"type" validate:"required"`
		Amount      string `json:"amount" validate:"required"`
		Description string `json:"description" validate:"required,min=1,max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		amount, err := decimal.NewFromString(data.Amount)
		if err != nil {
			render.ServiceError(w, "Invalid transaction", http.StatusUnprocessableEntity)
			return
		}

		created, err := walletService.AddEntry(r.Context(), user.ID, data.Type, amount, data.Description)

		switch {
		case err == nil:
			render.JSONWithStatus(w, transactionToResponse(created), http.StatusCreated)
		case errors.Is(err, apperrors.ErrTransactionInvalid):
			render.ServiceError(w, "Invalid transaction", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to add transaction", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handlePurchase(settlementService settlementService, l logger.Logger) http.Handler {
	type request struct {
		ShopID uuid.UUID `json:"shop_id" validate:"required"`
	}
	type response struct {
		PurchaseID   uuid.UUID             `json:"purchase_id"`
		Total        float64               `json:"total"`
		Transactions []transactionResponse `json:"transactions"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := settlementService.Settle(r.Context(), user.ID, data.ShopID)

		switch {
		case err == nil:
			transactions := make([]transactionResponse, 0, len(result.Transactions))
			for _, tx := range result.Transactions {
				transactions = append(transactions, transactionToResponse(tx))
			}
			total, _ := result.Commission.Total.Float64()
			render.JSONWithStatus(w, response{
				PurchaseID:   result.PurchaseID,
				Total:        total,
				Transactions: transactions,
			}, http.StatusCreated)
		case errors.Is(err, apperrors.ErrShopNotFound):
			render.ServiceError(w, "Shop not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInvalidDiscount):
			render.ServiceError(w, "Shop discount is invalid", http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrSettlementFailed):
			l.Error("Settlement failed", "error", err, "user_id", user.ID, "shop_id", data.ShopID)
			render.ServiceError(w, "Purchase could not be settled, try again", http.StatusServiceUnavailable)
		default:
			l.Error("Failed to settle purchase", "error", err, "user_id", user.ID, "shop_id", data.ShopID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// queryInt reads an integer query parameter, falling back on absent or
// malformed values.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
