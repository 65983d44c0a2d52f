// Package service orchestrates card issuance and lifecycle management.
package service

import (
	"context"
	"errors"
	"log/slog"

	"cardvault/internal/card/cardgen"
	cardmetrics "cardvault/internal/card/metrics"
	"cardvault/internal/card/models"
	"cardvault/internal/card/store"
	"cardvault/internal/events"
	id "cardvault/pkg/domain"
	derrors "cardvault/pkg/domain-errors"
	"cardvault/pkg/platform/sentinel"
	"cardvault/pkg/requestcontext"
)

// maxGenerateRetries bounds card number regeneration on uniqueness conflicts.
const maxGenerateRetries = 5

// Service orchestrates card issuance and lifecycle operations.
type Service struct {
	cards     store.Store
	publisher events.Publisher
	metrics   *cardmetrics.Metrics
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches the card metrics.
func WithMetrics(m *cardmetrics.Metrics) Option {
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

func New(cards store.Store, opts ...Option) *Service {
	s := &Service{
		cards:     cards,
		publisher: events.Noop{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a new card for the user. Card number collisions are retried
// with a fresh number; the store's uniqueness guarantee makes the final
// number unique.
func (s *Service) Create(ctx context.Context, userID id.UserID, params models.CreateCardParams) (*models.Card, error) {
	if userID.IsZero() {
		return nil, derrors.New(derrors.CodeUnauthorized, "authentication required")
	}

	// Expiry is checked against the request-pinned clock so one request sees
	// a single "now" everywhere; Validate only parses the timestamp.
	now := requestcontext.Now(ctx)
	if !params.ExpiryDate.After(now) {
		return nil, derrors.New(derrors.CodeValidation, "expiryDate must be in the future")
	}

	for attempt := 0; attempt <= maxGenerateRetries; attempt++ {
		number, err := cardgen.GenerateNumber()
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to generate card number")
		}
		cvv, err := cardgen.GenerateCVV()
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to generate cvv")
		}

		card, err := models.NewCard(id.NewCardID(), userID, number, cvv, params, now)
		if err != nil {
			return nil, err
		}

		if err := s.cards.Create(ctx, card); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				s.metrics.IncrementNumberCollisions()
				continue
			}
			return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to create card")
		}

		s.metrics.IncrementCardsIssued()
		s.publisher.Emit(ctx, events.Event{
			Type:      events.TypeCardIssued,
			Timestamp: now,
			UserID:    userID,
			CardID:    card.ID,
			RequestID: requestcontext.RequestID(ctx),
		})
		return card, nil
	}
	return nil, derrors.New(derrors.CodeInternal, "failed to generate a unique card number")
}

// Get returns the user's card. Existence is checked before ownership: a card
// that truly does not exist yields not_found, another owner's card yields
// forbidden.
func (s *Service) Get(ctx context.Context, userID id.UserID, cardID id.CardID) (*models.Card, error) {
	return s.resolveOwned(ctx, userID, cardID)
}

// List returns the user's cards, newest first.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]*models.Card, error) {
	cards, err := s.cards.ListByUser(ctx, userID)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "failed to list cards")
	}
	return cards, nil
}

// Update applies a partial update to the user's card. Unset fields keep
// their prior values.
func (s *Service) Update(ctx context.Context, userID id.UserID, cardID id.CardID, params models.UpdateCardParams) (*models.Card, error) {
	if _, err := s.resolveOwned(ctx, userID, cardID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	card, err := s.cards.Execute(ctx, cardID,
		func(*models.Card) error { return nil },
		func(c *models.Card) { c.ApplyUpdate(params, now) },
	)
	if err != nil {
		return nil, s.wrapStoreErr(err, "failed to update card")
	}

	s.publisher.Emit(ctx, events.Event{
		Type:      events.TypeCardUpdated,
		Timestamp: now,
		UserID:    userID,
		CardID:    cardID,
		RequestID: requestcontext.RequestID(ctx),
	})
	return card, nil
}

// Delete removes the user's card. Transactions cascade at the store level.
func (s *Service) Delete(ctx context.Context, userID id.UserID, cardID id.CardID) error {
	if _, err := s.resolveOwned(ctx, userID, cardID); err != nil {
		return err
	}

	if err := s.cards.Delete(ctx, cardID); err != nil {
		return s.wrapStoreErr(err, "failed to delete card")
	}

	s.metrics.IncrementCardsDeleted()
	s.publisher.Emit(ctx, events.Event{
		Type:      events.TypeCardDeleted,
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		CardID:    cardID,
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// resolveOwned loads the card and enforces the ownership check.
func (s *Service) resolveOwned(ctx context.Context, userID id.UserID, cardID id.CardID) (*models.Card, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return nil, s.wrapStoreErr(err, "failed to load card")
	}
	if card.UserID != userID {
		return nil, derrors.New(derrors.CodeForbidden, "card belongs to another user")
	}
	return card, nil
}

func (s *Service) wrapStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return derrors.New(derrors.CodeNotFound, "card not found")
	}
	return derrors.Wrap(err, derrors.CodeInternal, msg)
}
