// Package store defines the transaction log persistence contract and its
// implementations. The log is append-only; there is no update or per-row
// delete, only the cascade that follows card deletion.
package store

import (
	"context"

	"cardvault/internal/transaction/models"
	id "cardvault/pkg/domain"
)

// Store persists transactions.
type Store interface {
	// Create appends a transaction to the log.
	Create(ctx context.Context, tx *models.Transaction) error

	// ListByCard returns the card's transactions, newest first.
	ListByCard(ctx context.Context, cardID id.CardID) ([]*models.Transaction, error)

	// ListByCards returns all transactions for the given cards, newest first.
	// Used to assemble a user's feed across every card they own.
	ListByCards(ctx context.Context, cardIDs []id.CardID) ([]*models.Transaction, error)
}
