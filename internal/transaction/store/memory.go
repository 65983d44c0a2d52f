package store

import (
	"context"
	"sort"
	"sync"

	"cardvault/internal/transaction/models"
	id "cardvault/pkg/domain"
)

// InMemory is the development and test implementation of Store.
type InMemory struct {
	mu     sync.RWMutex
	byCard map[id.CardID][]*models.Transaction
}

func NewInMemory() *InMemory {
	return &InMemory{
		byCard: make(map[id.CardID][]*models.Transaction),
	}
}

func (s *InMemory) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCard[tx.CardID] = append(s.byCard[tx.CardID], tx.Clone())
	return nil
}

func (s *InMemory) ListByCard(_ context.Context, cardID id.CardID) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortNewestFirst(cloneAll(s.byCard[cardID])), nil
}

func (s *InMemory) ListByCards(_ context.Context, cardIDs []id.CardID) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Transaction
	for _, cardID := range cardIDs {
		out = append(out, cloneAll(s.byCard[cardID])...)
	}
	return sortNewestFirst(out), nil
}

// RemoveByCard drops a card's transactions. Registered as the card store's
// delete hook so the memory stores mirror the postgres FK cascade.
func (s *InMemory) RemoveByCard(cardID id.CardID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byCard, cardID)
}

func cloneAll(transactions []*models.Transaction) []*models.Transaction {
	out := make([]*models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, tx.Clone())
	}
	return out
}

func sortNewestFirst(transactions []*models.Transaction) []*models.Transaction {
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})
	return transactions
}
