// Package store defines the card persistence contract and its
// implementations. Stores return sentinel errors; services translate them
// into domain errors.
package store

import (
	"context"

	"cardvault/internal/card/models"
	id "cardvault/pkg/domain"
)

// Store persists cards.
//
// Execute is the concurrency contract for spend accounting: validate and
// mutate run while the implementation holds the card's lock (a mutex section
// in memory, SELECT ... FOR UPDATE in postgres). Two concurrent purchases can
// therefore never both pass the limit check against a stale CurrentSpent.
type Store interface {
	// Create persists a new card. Returns sentinel.ErrConflict when the card
	// number is already in use.
	Create(ctx context.Context, card *models.Card) error

	// FindByID returns the card or sentinel.ErrNotFound.
	FindByID(ctx context.Context, cardID id.CardID) (*models.Card, error)

	// ListByUser returns the user's cards, newest first.
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Card, error)

	// Update persists the card's mutable fields. Returns sentinel.ErrNotFound
	// if the card no longer exists.
	Update(ctx context.Context, card *models.Card) error

	// Delete removes the card and, by cascade, its transactions.
	Delete(ctx context.Context, cardID id.CardID) error

	// Execute atomically runs validate then mutate against the current state
	// of the card, holding the card's lock across both. If validate returns
	// an error the card is left unchanged and the error is returned alongside
	// the card's locked-in state. Returns the card as of the end of the
	// critical section.
	Execute(ctx context.Context, cardID id.CardID, validate func(*models.Card) error, mutate func(*models.Card)) (*models.Card, error)
}
