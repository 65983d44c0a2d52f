package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cardModel "cardvault/internal/card/models"
	cardService "cardvault/internal/card/service"
	cardStore "cardvault/internal/card/store"
	"cardvault/internal/jwttoken"
	"cardvault/internal/ratelimit"
	txService "cardvault/internal/transaction/service"
	txStore "cardvault/internal/transaction/store"
	id "cardvault/pkg/domain"
)

const signingKey = "test-signing-key"

type txEnv struct {
	router http.Handler
	cards  *cardService.Service
	tokens *jwttoken.Service
}

func newTxEnv(t *testing.T, limit int) *txEnv {
	t.Helper()
	cards := cardStore.NewInMemory()
	transactions := txStore.NewInMemory()
	cards.OnDelete(transactions.RemoveByCard)

	cardSvc := cardService.New(cards)
	txSvc := txService.New(cards, transactions)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwttoken.NewService(signingKey, "cardvault-test", "cardvault")
	limiter := ratelimit.NewMemory(limit, time.Minute)

	h := New(txSvc, logger, nil, tokens, limiter)
	r := chi.NewRouter()
	h.Register(r)
	return &txEnv{router: r, cards: cardSvc, tokens: tokens}
}

func (e *txEnv) do(t *testing.T, method, path string, userID id.UserID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, err := e.tokens.GenerateAccessToken(userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *txEnv) seedCard(t *testing.T, userID id.UserID, limit int64) id.CardID {
	t.Helper()
	card, err := e.cards.Create(t.Context(), userID, cardModelParams(limit))
	if err != nil {
		t.Fatalf("failed to seed card: %v", err)
	}
	return card.ID
}

func cardModelParams(limit int64) cardModel.CreateCardParams {
	return cardModel.CreateCardParams{
		SpendingLimit: decimal.NewFromInt(limit),
		ExpiryDate:    time.Now().Add(365 * 24 * time.Hour),
	}
}

func purchase(cardID id.CardID, amount int64, merchant string) map[string]any {
	return map[string]any{
		"cardId":       cardID.String(),
		"amount":       amount,
		"merchantName": merchant,
	}
}

func TestAuthorizeApprovedOverHTTP(t *testing.T) {
	env := newTxEnv(t, 100)
	userID := id.UserID(uuid.New())
	cardID := env.seedCard(t, userID, 100)

	rec := env.do(t, http.MethodPost, "/transactions", userID, purchase(cardID, 30, "Coffee Shop"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status           string          `json:"status"`
		RemainingBalance decimal.Decimal `json:"remainingBalance"`
		Transaction      struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"transaction"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "success" || resp.Transaction.Status != "success" {
		t.Fatalf("expected success status, got %+v", resp)
	}
	if !resp.RemainingBalance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected remaining balance 70, got %s", resp.RemainingBalance)
	}
	if resp.Transaction.ID == uuid.Nil {
		t.Fatalf("expected persisted transaction id")
	}
}

func TestAuthorizeDeclinedOverHTTP(t *testing.T) {
	env := newTxEnv(t, 100)
	userID := id.UserID(uuid.New())
	cardID := env.seedCard(t, userID, 100)

	rec := env.do(t, http.MethodPost, "/transactions", userID, purchase(cardID, 500, "Coffee Shop"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for declined purchase, got %d", rec.Code)
	}

	var resp struct {
		Status        string `json:"status"`
		DeclineReason string `json:"declineReason"`
		Message       string `json:"message"`
		Transaction   struct {
			ID uuid.UUID `json:"id"`
		} `json:"transaction"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "failed" || resp.DeclineReason != "limit_exceeded" {
		t.Fatalf("expected limit_exceeded decline, got %+v", resp)
	}
	if resp.Transaction.ID == uuid.Nil {
		t.Fatalf("expected declined transaction to be persisted")
	}
}

func TestAuthorizeAccessControlOverHTTP(t *testing.T) {
	env := newTxEnv(t, 100)
	owner := id.UserID(uuid.New())
	intruder := id.UserID(uuid.New())
	cardID := env.seedCard(t, owner, 100)

	t.Run("unknown card gets 404", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/transactions", owner, purchase(id.NewCardID(), 10, "Shop"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("foreign card gets 403", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/transactions", intruder, purchase(cardID, 10, "Shop"))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestAuthorizeValidationOverHTTP(t *testing.T) {
	env := newTxEnv(t, 100)
	userID := id.UserID(uuid.New())
	cardID := env.seedCard(t, userID, 100)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing merchant", map[string]any{"cardId": cardID.String(), "amount": 10}},
		{"non-positive amount", purchase(cardID, 0, "Shop")},
		{"malformed cardId", map[string]any{"cardId": "nope", "amount": 10, "merchantName": "Shop"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/transactions", userID, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListAndSummaryOverHTTP(t *testing.T) {
	env := newTxEnv(t, 100)
	userID := id.UserID(uuid.New())
	cardID := env.seedCard(t, userID, 100)

	for _, amount := range []int64{30, 40, 50} { // third one declines
		env.do(t, http.MethodPost, "/transactions", userID, purchase(cardID, amount, "Shop"))
	}

	t.Run("list annotates with last four", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/transactions", userID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var list []struct {
			Status   string `json:"status"`
			LastFour string `json:"lastFourDigits"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 transactions, got %d", len(list))
		}
		for _, tx := range list {
			if len(tx.LastFour) != 4 {
				t.Fatalf("expected last four annotation, got %q", tx.LastFour)
			}
		}
	})

	t.Run("summary aggregates server-side", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/transactions/summary", userID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var summary struct {
			Total      int             `json:"total"`
			Succeeded  int             `json:"succeeded"`
			Failed     int             `json:"failed"`
			TotalSpent decimal.Decimal `json:"totalSpent"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
			t.Fatalf("unexpected summary %+v", summary)
		}
		if !summary.TotalSpent.Equal(decimal.NewFromInt(70)) {
			t.Fatalf("expected totalSpent 70, got %s", summary.TotalSpent)
		}
	})

	t.Run("filter by unknown card gets 404", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/transactions?cardId="+uuid.NewString(), userID, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestRateLimitOverHTTP(t *testing.T) {
	env := newTxEnv(t, 2)
	userID := id.UserID(uuid.New())
	cardID := env.seedCard(t, userID, 1000)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/transactions", userID, purchase(cardID, 1, "Shop"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 within limit, got %d", rec.Code)
		}
	}

	rec := env.do(t, http.MethodPost, "/transactions", userID, purchase(cardID, 1, "Shop"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over limit, got %d", rec.Code)
	}

	// Reads are not limited.
	rec = env.do(t, http.MethodGet, "/transactions", userID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unlimited read, got %d", rec.Code)
	}
}
