package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"cardvault/internal/card/models"
	id "cardvault/pkg/domain"
	"cardvault/pkg/platform/sentinel"
)

type CardStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *CardStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestCardStoreSuite(t *testing.T) {
	suite.Run(t, new(CardStoreSuite))
}

func (s *CardStoreSuite) newCard(userID id.UserID, number string) *models.Card {
	card, err := models.NewCard(
		id.NewCardID(),
		userID,
		number,
		"123",
		models.CreateCardParams{
			SpendingLimit: decimal.NewFromInt(1000),
			ExpiryDate:    time.Now().Add(365 * 24 * time.Hour),
			Name:          "Test Card",
		},
		time.Now(),
	)
	s.Require().NoError(err)
	return card
}

// TestCreationAndLookups verifies the store correctly creates and retrieves cards.
func (s *CardStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds card by ID", func() {
		card := s.newCard(id.UserID(uuid.New()), "4111000011112222")
		s.Require().NoError(s.store.Create(s.ctx, card))

		found, err := s.store.FindByID(s.ctx, card.ID)
		s.Require().NoError(err)
		s.Equal(card.Number, found.Number)
		s.Equal(card.UserID, found.UserID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewCardID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned card is a copy", func() {
		card := s.newCard(id.UserID(uuid.New()), "4111000011113333")
		s.Require().NoError(s.store.Create(s.ctx, card))

		found, err := s.store.FindByID(s.ctx, card.ID)
		s.Require().NoError(err)
		found.IsActive = false

		again, err := s.store.FindByID(s.ctx, card.ID)
		s.Require().NoError(err)
		s.True(again.IsActive)
	})
}

// TestNumberUniqueness verifies card number uniqueness enforcement.
func (s *CardStoreSuite) TestNumberUniqueness() {
	s.Run("rejects duplicate card number", func() {
		card1 := s.newCard(id.UserID(uuid.New()), "4111999988887777")
		card2 := s.newCard(id.UserID(uuid.New()), "4111999988887777")

		s.Require().NoError(s.store.Create(s.ctx, card1))
		s.Require().ErrorIs(s.store.Create(s.ctx, card2), sentinel.ErrConflict)
	})

	s.Run("frees the number after delete", func() {
		card1 := s.newCard(id.UserID(uuid.New()), "4111999988886666")
		s.Require().NoError(s.store.Create(s.ctx, card1))
		s.Require().NoError(s.store.Delete(s.ctx, card1.ID))

		card2 := s.newCard(id.UserID(uuid.New()), "4111999988886666")
		s.Require().NoError(s.store.Create(s.ctx, card2))
	})
}

// TestListByUser verifies per-user listing and ordering.
func (s *CardStoreSuite) TestListByUser() {
	s.Run("returns only the user's cards, newest first", func() {
		owner := id.UserID(uuid.New())
		other := id.UserID(uuid.New())

		older := s.newCard(owner, "4111000000000001")
		older.CreatedAt = time.Now().Add(-time.Hour)
		newer := s.newCard(owner, "4111000000000002")
		stranger := s.newCard(other, "4111000000000003")

		s.Require().NoError(s.store.Create(s.ctx, older))
		s.Require().NoError(s.store.Create(s.ctx, newer))
		s.Require().NoError(s.store.Create(s.ctx, stranger))

		cards, err := s.store.ListByUser(s.ctx, owner)
		s.Require().NoError(err)
		s.Require().Len(cards, 2)
		s.Equal(newer.ID, cards[0].ID)
		s.Equal(older.ID, cards[1].ID)
	})

	s.Run("returns empty slice for user with no cards", func() {
		cards, err := s.store.ListByUser(s.ctx, id.UserID(uuid.New()))
		s.Require().NoError(err)
		s.Empty(cards)
	})
}

// TestDelete verifies deletion and cascade hooks.
func (s *CardStoreSuite) TestDelete() {
	s.Run("returns ErrNotFound for unknown card", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, id.NewCardID()), sentinel.ErrNotFound)
	})

	s.Run("invokes cascade hooks with the deleted ID", func() {
		var cascaded []id.CardID
		s.store.OnDelete(func(cardID id.CardID) {
			cascaded = append(cascaded, cardID)
		})

		card := s.newCard(id.UserID(uuid.New()), "4111000000000004")
		s.Require().NoError(s.store.Create(s.ctx, card))
		s.Require().NoError(s.store.Delete(s.ctx, card.ID))

		s.Require().Len(cascaded, 1)
		s.Equal(card.ID, cascaded[0])
	})
}

// TestExecute verifies the atomic validate-then-mutate contract.
func (s *CardStoreSuite) TestExecute() {
	s.Run("applies mutation when validation passes", func() {
		card := s.newCard(id.UserID(uuid.New()), "4111000000000005")
		s.Require().NoError(s.store.Create(s.ctx, card))

		updated, err := s.store.Execute(s.ctx, card.ID,
			func(*models.Card) error { return nil },
			func(c *models.Card) { c.ApplySpend(decimal.NewFromInt(250), time.Now()) },
		)
		s.Require().NoError(err)
		s.True(updated.CurrentSpent.Equal(decimal.NewFromInt(250)))

		found, err := s.store.FindByID(s.ctx, card.ID)
		s.Require().NoError(err)
		s.True(found.CurrentSpent.Equal(decimal.NewFromInt(250)))
	})

	s.Run("leaves card unchanged when validation fails", func() {
		card := s.newCard(id.UserID(uuid.New()), "4111000000000006")
		s.Require().NoError(s.store.Create(s.ctx, card))

		declined := sentinel.ErrInvalidState
		got, err := s.store.Execute(s.ctx, card.ID,
			func(*models.Card) error { return declined },
			func(c *models.Card) { c.ApplySpend(decimal.NewFromInt(999), time.Now()) },
		)
		s.Require().ErrorIs(err, declined)
		s.Require().NotNil(got)
		s.True(got.CurrentSpent.IsZero())

		found, err := s.store.FindByID(s.ctx, card.ID)
		s.Require().NoError(err)
		s.True(found.CurrentSpent.IsZero())
	})

	s.Run("returns ErrNotFound for unknown card", func() {
		_, err := s.store.Execute(s.ctx, id.NewCardID(),
			func(*models.Card) error { return nil },
			func(*models.Card) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
