package store

import (
	"context"
	"sort"
	"sync"

	"cardvault/internal/card/models"
	id "cardvault/pkg/domain"
	"cardvault/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of Store.
type InMemory struct {
	mu      sync.RWMutex
	cards   map[id.CardID]*models.Card
	numbers map[string]id.CardID

	// onDelete lets the transaction store register its cascade hook so card
	// deletion behaves like the postgres FK.
	onDelete []func(id.CardID)
}

func NewInMemory() *InMemory {
	return &InMemory{
		cards:   make(map[id.CardID]*models.Card),
		numbers: make(map[string]id.CardID),
	}
}

// OnDelete registers a cascade hook invoked while the store lock is held.
func (s *InMemory) OnDelete(hook func(id.CardID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, hook)
}

func (s *InMemory) Create(_ context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.numbers[card.Number]; taken {
		return sentinel.ErrConflict
	}
	s.cards[card.ID] = card.Clone()
	s.numbers[card.Number] = card.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, cardID id.CardID) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[cardID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return card.Clone(), nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Card
	for _, card := range s.cards {
		if card.UserID == userID {
			out = append(out, card.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Update(_ context.Context, card *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[card.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.cards[card.ID] = card.Clone()
	return nil
}

func (s *InMemory) Delete(_ context.Context, cardID id.CardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.numbers, card.Number)
	delete(s.cards, cardID)
	for _, hook := range s.onDelete {
		hook(cardID)
	}
	return nil
}

func (s *InMemory) Execute(_ context.Context, cardID id.CardID, validate func(*models.Card) error, mutate func(*models.Card)) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(card); err != nil {
		return card.Clone(), err
	}
	mutate(card)
	return card.Clone(), nil
}
