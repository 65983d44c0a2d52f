// Package handler exposes the card lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	cardModel "cardvault/internal/card/models"
	"cardvault/internal/platform/metrics"
	"cardvault/internal/platform/middleware"
	txModel "cardvault/internal/transaction/models"
	id "cardvault/pkg/domain"
	derrors "cardvault/pkg/domain-errors"
	"cardvault/pkg/platform/httputil"
	"cardvault/pkg/requestcontext"
)

// Service defines the interface for card lifecycle operations.
type Service interface {
	Create(ctx context.Context, userID id.UserID, params cardModel.CreateCardParams) (*cardModel.Card, error)
	Get(ctx context.Context, userID id.UserID, cardID id.CardID) (*cardModel.Card, error)
	List(ctx context.Context, userID id.UserID) ([]*cardModel.Card, error)
	Update(ctx context.Context, userID id.UserID, cardID id.CardID, params cardModel.UpdateCardParams) (*cardModel.Card, error)
	Delete(ctx context.Context, userID id.UserID, cardID id.CardID) error
}

// TransactionLister supplies a card's transaction history for the card detail
// response. The transaction store satisfies it directly.
type TransactionLister interface {
	ListByCard(ctx context.Context, cardID id.CardID) ([]*txModel.Transaction, error)
}

// Handler handles card endpoints.
type Handler struct {
	logger       *slog.Logger
	cards        Service
	transactions TransactionLister
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new card Handler.
func New(
	cards Service,
	transactions TransactionLister,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		cards:        cards,
		transactions: transactions,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the card routes with the chi router.
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
		r.Post("/cards", h.handleCreateCard)
		r.Get("/cards", h.handleListCards)
		r.Get("/cards/{cardID}", h.handleGetCard)
		r.Patch("/cards/{cardID}", h.handleUpdateCard)
		r.Delete("/cards/{cardID}", h.handleDeleteCard)
	})
}

// handleCreateCard issues a new card for the authenticated user.
func (h *Handler) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authedUser(w, ctx, requestID)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[cardModel.CreateCardRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	card, err := h.cards.Create(ctx, userID, req.Params())
	if err != nil {
		h.writeServiceError(w, ctx, requestID, "failed to create card", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, card.Mask())
}

// handleListCards returns all of the authenticated user's cards, newest first.
func (h *Handler) handleListCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authedUser(w, ctx, requestID)
	if !ok {
		return
	}

	cards, err := h.cards.List(ctx, userID)
	if err != nil {
		h.writeServiceError(w, ctx, requestID, "failed to list cards", err)
		return
	}

	masked := make([]cardModel.Masked, 0, len(cards))
	for _, card := range cards {
		masked = append(masked, card.Mask())
	}
	httputil.WriteJSON(w, http.StatusOK, masked)
}

func (h *Handler) handleGetCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authedUser(w, ctx, requestID)
	if !ok {
		return
	}

	cardID, ok := h.pathCardID(w, r, ctx, requestID)
	if !ok {
		return
	}

	card, err := h.cards.Get(ctx, userID, cardID)
	if err != nil {
		h.writeServiceError(w, ctx, requestID, "failed to get card", err)
		return
	}

	transactions, err := h.transactions.ListByCard(ctx, cardID)
	if err != nil {
		h.writeServiceError(w, ctx, requestID, "failed to load card transactions", err)
		return
	}
	if transactions == nil {
		transactions = []*txModel.Transaction{}
	}

	httputil.WriteJSON(w, http.StatusOK, cardDetailResponse{
		Masked:       card.Mask(),
		Transactions: transactions,
	})
}

// cardDetailResponse is the GET /cards/{id} payload: the masked card plus its
// transaction history, newest first.
type cardDetailResponse struct {
	cardModel.Masked
	Transactions []*txModel.Transaction `json:"transactions"`
}

func (h *Handler) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authedUser(w, ctx, requestID)
	if !ok {
		return
	}

	cardID, ok := h.pathCardID(w, r, ctx, requestID)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[cardModel.UpdateCardRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	card, err := h.cards.Update(ctx, userID, cardID, req.Params())
	if err != nil {
		h.writeServiceError(w, ctx, requestID, "failed to update card", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, card.Mask())
}

func (h *Handler) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authedUser(w, ctx, requestID)
	if !ok {
		return
	}

	cardID, ok := h.pathCardID(w, r, ctx, requestID)
	if !ok {
		return
	}

	if err := h.cards.Delete(ctx, userID, cardID); err != nil {
		h.writeServiceError(w, ctx, requestID, "failed to delete card", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "card deleted"})
}

// authedUser pulls the authenticated user from context. RequireAuth guarantees
// it is set; a zero value here means the middleware chain is misconfigured.
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

func (h *Handler) pathCardID(w http.ResponseWriter, r *http.Request, ctx context.Context, requestID string) (id.CardID, bool) {
	cardID, err := id.ParseCardID(chi.URLParam(r, "cardID"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid card id in path",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, derrors.New(derrors.CodeInvalidInput, "invalid card id"))
		return id.CardID{}, false
	}
	return cardID, true
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
