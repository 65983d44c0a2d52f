// Package handler exposes transaction authorization and the transaction feed
// over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"cardvault/internal/platform/metrics"
	"cardvault/internal/platform/middleware"
	"cardvault/internal/ratelimit"
	"cardvault/internal/transaction/models"
	txService "cardvault/internal/transaction/service"
	id "cardvault/pkg/domain"
	derrors "cardvault/pkg/domain-errors"
	"cardvault/pkg/platform/httputil"
	"cardvault/pkg/requestcontext"
)

// Service defines the interface for transaction operations.
type Service interface {
	Authorize(ctx context.Context, userID id.UserID, cardID id.CardID, amount decimal.Decimal, merchantName, description string) (*txService.AuthorizationResult, error)
	List(ctx context.Context, userID id.UserID, cardFilter *id.CardID) ([]models.WithCard, error)
	Summary(ctx context.Context, userID id.UserID, cardFilter *id.CardID) (models.Summary, error)
}

// Handler handles transaction endpoints.
type Handler struct {
	logger       *slog.Logger
	transactions Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	limiter      ratelimit.Limiter
}

// New creates a new transaction Handler.
func New(
	transactions Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	limiter ratelimit.Limiter) *Handler {
	return &Handler{
		logger:       logger,
		transactions: transactions,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		limiter:      limiter,
	}
}

// Register registers the transaction routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.RequestTime)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Latency(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/transactions", h.handleListTransactions)
		r.Get("/transactions/summary", h.handleSummary)
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(h.limiter, h.logger))
			r.Post("/transactions", h.handleCreateTransaction)
		})
	})
}

// authorizationResponse is the POST /transactions payload for both outcomes.
type authorizationResponse struct {
	Status           models.Status       `json:"status"`
	Transaction      *models.Transaction `json:"transaction"`
	RemainingBalance decimal.Decimal     `json:"remainingBalance"`
	DeclineReason    string              `json:"declineReason,omitempty"`
	Message          string              `json:"message,omitempty"`
}

// handleCreateTransaction runs the purchase authorization.
func (h *Handler) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authedUser(w, ctx, requestID)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CreateTransactionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.transactions.Authorize(ctx, userID, req.ParsedCardID(), req.Amount, req.MerchantName, req.Description)
	if err != nil {
		h.writeServiceError(w, ctx, requestID, "failed to authorize transaction", err)
		return
	}

	if !result.Approved {
		httputil.WriteJSON(w, http.StatusBadRequest, authorizationResponse{
			Status:           models.StatusFailed,
			Transaction:      result.Transaction,
			RemainingBalance: result.RemainingBalance,
			DeclineReason:    string(result.Reason),
			Message:          result.Reason.Message(),
		})
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, authorizationResponse{
		Status:           models.StatusSuccess,
		Transaction:      result.Transaction,
		RemainingBalance: result.RemainingBalance,
	})
}

// handleListTransactions returns the caller's transactions, optionally
// filtered to one card via ?cardId=.
func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authedUser(w, ctx, requestID)
	if !ok {
		return
	}

	filter, ok := h.cardFilter(w, r, ctx, requestID)
	if !ok {
		return
	}

	transactions, err := h.transactions.List(ctx, userID, filter)
	if err != nil {
		h.writeServiceError(w, ctx, requestID, "failed to list transactions", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, transactions)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authedUser(w, ctx, requestID)
	if !ok {
		return
	}

	filter, ok := h.cardFilter(w, r, ctx, requestID)
	if !ok {
		return
	}

	summary, err := h.transactions.Summary(ctx, userID, filter)
	if err != nil {
		h.writeServiceError(w, ctx, requestID, "failed to summarize transactions", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// cardFilter parses the optional ?cardId= query parameter.
func (h *Handler) cardFilter(w http.ResponseWriter, r *http.Request, ctx context.Context, requestID string) (*id.CardID, bool) {
	raw := r.URL.Query().Get("cardId")
	if raw == "" {
		return nil, true
	}
	cardID, err := id.ParseCardID(raw)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid cardId filter",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, derrors.New(derrors.CodeInvalidInput, "cardId must be a valid UUID"))
		return nil, false
	}
	return &cardID, true
}

func (h *Handler) authedUser(w http.ResponseWriter, ctx context.Context, requestID string) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, derrors.New(derrors.CodeInternal, "authentication context error"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, ctx context.Context, requestID, msg string, err error) {
	switch derrors.CodeOf(err) {
	case derrors.CodeInternal:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
	default:
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
