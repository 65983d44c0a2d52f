// Package service implements transaction authorization and the transaction
// feed.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	cardModel "cardvault/internal/card/models"
	"cardvault/internal/events"
	txmetrics "cardvault/internal/transaction/metrics"
	"cardvault/internal/transaction/models"
	id "cardvault/pkg/domain"
	derrors "cardvault/pkg/domain-errors"
	"cardvault/pkg/platform/sentinel"
	"cardvault/pkg/requestcontext"
)

// CardStore is the slice of the card store the transaction service needs.
type CardStore interface {
	FindByID(ctx context.Context, cardID id.CardID) (*cardModel.Card, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*cardModel.Card, error)
	Execute(ctx context.Context, cardID id.CardID, validate func(*cardModel.Card) error, mutate func(*cardModel.Card)) (*cardModel.Card, error)
}

// TransactionStore persists the transaction log.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	ListByCard(ctx context.Context, cardID id.CardID) ([]*models.Transaction, error)
	ListByCards(ctx context.Context, cardIDs []id.CardID) ([]*models.Transaction, error)
}

// AuthorizationResult is the outcome of one purchase attempt. Declines carry
// the persisted failed transaction and the rule that rejected the purchase.
type AuthorizationResult struct {
	Approved         bool
	Reason           cardModel.DeclineReason
	Transaction      *models.Transaction
	RemainingBalance decimal.Decimal
}

// Service authorizes purchases against cards and serves the transaction feed.
type Service struct {
	cards        CardStore
	transactions TransactionStore
	publisher    events.Publisher
	metrics      *txmetrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches the transaction metrics.
func WithMetrics(m *txmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher attaches the domain event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(cards CardStore, transactions TransactionStore, opts ...Option) *Service {
	s := &Service{
		cards:        cards,
		transactions: transactions,
		publisher:    events.Noop{},
		logger:       slog.Default(),
		tracer:       otel.Tracer("cardvault/transaction"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// declineError carries the failing rule out of the store's validate callback.
type declineError struct {
	reason cardModel.DeclineReason
}

func (e declineError) Error() string { return string(e.reason) }

// Authorize runs the purchase decision sequence. The rule checks and the
// spend mutation run inside the card store's per-card critical section, so
// two concurrent purchases can never both pass the limit check against a
// stale spent total.
//
// Every rule-level decline persists a failed transaction carrying the reason.
// Not-found and forbidden outcomes record nothing.
func (s *Service) Authorize(ctx context.Context, userID id.UserID, cardID id.CardID, amount decimal.Decimal, merchantName, description string) (*AuthorizationResult, error) {
	ctx, span := s.tracer.Start(ctx, "transaction.authorize",
		trace.WithAttributes(
			attribute.String("card.id", cardID.String()),
			attribute.String("merchant.name", merchantName),
		))
	defer span.End()

	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, derrors.New(derrors.CodeNotFound, "card not found")
		}
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to load card")
	}
	if card.UserID != userID {
		return nil, derrors.New(derrors.CodeForbidden, "card belongs to another user")
	}

	now := requestcontext.Now(ctx)
	card, err = s.cards.Execute(ctx, cardID,
		func(c *cardModel.Card) error {
			if reason := c.CheckPurchase(now, amount, merchantName); reason != "" {
				return declineError{reason: reason}
			}
			return nil
		},
		func(c *cardModel.Card) { c.ApplySpend(amount, now) },
	)

	var decline declineError
	switch {
	case err == nil:
		return s.recordSuccess(ctx, userID, card, amount, merchantName, description, now)
	case errors.As(err, &decline):
		return s.recordDecline(ctx, userID, card, amount, merchantName, description, decline.reason, now)
	case errors.Is(err, sentinel.ErrNotFound):
		// Card deleted between the ownership check and the critical section.
		return nil, derrors.New(derrors.CodeNotFound, "card not found")
	default:
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to authorize transaction")
	}
}

// List returns the caller's transactions, newest first, annotated with each
// card's last four digits. With a card filter the card must exist and belong
// to the caller.
func (s *Service) List(ctx context.Context, userID id.UserID, cardFilter *id.CardID) ([]models.WithCard, error) {
	cards, err := s.cards.ListByUser(ctx, userID)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list cards")
	}

	lastFour := make(map[id.CardID]string, len(cards))
	for _, card := range cards {
		lastFour[card.ID] = card.LastFour
	}

	var transactions []*models.Transaction
	if cardFilter != nil {
		if err := s.checkFilter(ctx, *cardFilter, lastFour); err != nil {
			return nil, err
		}
		transactions, err = s.transactions.ListByCard(ctx, *cardFilter)
	} else {
		cardIDs := make([]id.CardID, 0, len(cards))
		for _, card := range cards {
			cardIDs = append(cardIDs, card.ID)
		}
		transactions, err = s.transactions.ListByCards(ctx, cardIDs)
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list transactions")
	}

	out := make([]models.WithCard, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, models.WithCard{
			Transaction:  *tx,
			CardLastFour: lastFour[tx.CardID],
		})
	}
	return out, nil
}

// Summary aggregates the caller's transactions server-side.
func (s *Service) Summary(ctx context.Context, userID id.UserID, cardFilter *id.CardID) (models.Summary, error) {
	annotated, err := s.List(ctx, userID, cardFilter)
	if err != nil {
		return models.Summary{}, err
	}
	transactions := make([]*models.Transaction, 0, len(annotated))
	for i := range annotated {
		transactions = append(transactions, &annotated[i].Transaction)
	}
	return models.Summarize(transactions), nil
}

// checkFilter validates a cardId filter against existence and ownership,
// keeping the 404-before-403 ordering.
func (s *Service) checkFilter(ctx context.Context, cardID id.CardID, owned map[id.CardID]string) error {
	if _, ok := owned[cardID]; ok {
		return nil
	}
	if _, err := s.cards.FindByID(ctx, cardID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return derrors.New(derrors.CodeNotFound, "card not found")
		}
		return derrors.Wrap(err, derrors.CodeInternal, "failed to load card")
	}
	return derrors.New(derrors.CodeForbidden, "card belongs to another user")
}

func (s *Service) recordSuccess(ctx context.Context, userID id.UserID, card *cardModel.Card, amount decimal.Decimal, merchantName, description string, now time.Time) (*AuthorizationResult, error) {
	tx := models.NewSuccess(card.ID, amount, merchantName, description, now)
	if err := s.transactions.Create(ctx, tx); err != nil {
		// The spend is already applied; losing the log row is worse than a
		// failed response, so surface the error.
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to record transaction")
	}

	s.metrics.IncrementApproved()
	s.publisher.Emit(ctx, events.Event{
		Type:          events.TypeTransactionApproved,
		Timestamp:     now,
		UserID:        userID,
		CardID:        card.ID,
		TransactionID: &tx.ID,
		Amount:        &amount,
		MerchantName:  merchantName,
		RequestID:     requestcontext.RequestID(ctx),
	})

	return &AuthorizationResult{
		Approved:         true,
		Transaction:      tx,
		RemainingBalance: card.Remaining(),
	}, nil
}

func (s *Service) recordDecline(ctx context.Context, userID id.UserID, card *cardModel.Card, amount decimal.Decimal, merchantName, description string, reason cardModel.DeclineReason, now time.Time) (*AuthorizationResult, error) {
	tx := models.NewDeclined(card.ID, amount, merchantName, description, reason, now)
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to record transaction")
	}

	s.metrics.IncrementDeclined(string(reason))
	s.logger.InfoContext(ctx, "transaction declined",
		"request_id", requestcontext.RequestID(ctx),
		"card_id", card.ID.String(),
		"reason", string(reason),
	)
	s.publisher.Emit(ctx, events.Event{
		Type:          events.TypeTransactionDeclined,
		Timestamp:     now,
		UserID:        userID,
		CardID:        card.ID,
		TransactionID: &tx.ID,
		Amount:        &amount,
		MerchantName:  merchantName,
		Reason:        string(reason),
		RequestID:     requestcontext.RequestID(ctx),
	})

	return &AuthorizationResult{
		Approved:         false,
		Reason:           reason,
		Transaction:      tx,
		RemainingBalance: card.Remaining(),
	}, nil
}
