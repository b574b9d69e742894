package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rootzapp/rootz/internal/handlers/userctx"
	"github.com/rootzapp/rootz/internal/logger"
	"github.com/rootzapp/rootz/internal/models"
)

// Stub that records what the handler asked for
type walletServiceStub struct {
	gotType   string
	gotAmount decimal.Decimal
}

func (s *walletServiceStub) GetWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	return models.Wallet{}, nil
}

func (s *walletServiceStub) ListTransactions(ctx context.Context, userID uuid.UUID, page int, pageSize int) ([]models.Transaction, int64, error) {
	return nil, 0, nil
}

func (s *walletServiceStub) AddEntry(ctx context.Context, userID uuid.UUID, txType string, amount decimal.Decimal, description string) (models.Transaction, error) {
	s.gotType = txType
	s.gotAmount = amount
	return models.Transaction{Type: txType, Amount: amount, Description: description}, nil
}

func TestHandleAddTransaction_Amounts(t *testing.T) {
	send := func(t *testing.T, stub *walletServiceStub, body string) *httptest.ResponseRecorder {
		t.Helper()
		h := handleAddTransaction(stub, logger.NewNoOp())

		r := httptest.NewRequest(http.MethodPost, "/api/user/wallet/transactions", strings.NewReader(body))
		r = r.WithContext(userctx.New(r.Context(), models.User{ID: uuid.New(), Name: "Payer"}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	t.Run("amount parsed as exact decimal", func(t *testing.T) {
		stub := &walletServiceStub{}

		// 0.1 has no exact float64 representation, a float path would drift
		w := send(t, stub, `{"type": "withdrawn", "amount": "0.1", "description": "Payout"}`)

		require.Equal(t, http.StatusCreated, w.Code, "Body: %s", w.Body.String())
		require.Equal(t, "withdrawn", stub.gotType)
		require.True(t, stub.gotAmount.Equal(decimal.RequireFromString("0.1")), "got %s", stub.gotAmount)
		require.Equal(t, int32(-1), stub.gotAmount.Exponent(), "amount should keep the literal scale")
	})

	t.Run("amount must be a string", func(t *testing.T) {
		stub := &walletServiceStub{}

		w := send(t, stub, `{"type": "withdrawn", "amount": 3.50, "description": "Payout"}`)

		require.Equal(t, http.StatusBadRequest, w.Code, "Body: %s", w.Body.String())
		require.Contains(t, w.Body.String(), "decoding_failed")
	})

	t.Run("unparsable amount rejected", func(t *testing.T) {
		stub := &walletServiceStub{}

		w := send(t, stub, `{"type": "withdrawn", "amount": "a lot", "description": "Payout"}`)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code, "Body: %s", w.Body.String())
		require.JSONEq(t, `
			{
				"error": "service_error",
				"message": "Invalid transaction"
			}`, w.Body.String())
	})
}
