//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"cardvault/internal/card/models"
	"cardvault/internal/card/store"
	id "cardvault/pkg/domain"
	"cardvault/pkg/platform/sentinel"
	"cardvault/pkg/testutil/containers"
)

type PostgresCardStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresCardStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCardStoreSuite))
}

func (s *PostgresCardStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresCardStoreSuite) SetupTest() {
	// Truncate in dependency order
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "transactions", "cards"))
}

func newTestCard(number string) *models.Card {
	card, err := models.NewCard(
		id.NewCardID(),
		id.UserID(uuid.New()),
		number,
		"123",
		models.CreateCardParams{
			SpendingLimit: decimal.NewFromInt(1000),
			ExpiryDate:    time.Now().Add(365 * 24 * time.Hour).UTC(),
			Name:          "Integration Card",
		},
		time.Now().UTC(),
	)
	if err != nil {
		panic(err)
	}
	return card
}

// TestRoundTrip verifies persistence of every field through a create/find
// cycle.
func (s *PostgresCardStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	card := newTestCard("4111000011110001")
	s.Require().NoError(s.store.Create(ctx, card))

	found, err := s.store.FindByID(ctx, card.ID)
	s.Require().NoError(err)
	s.Equal(card.Number, found.Number)
	s.Equal(card.LastFour, found.LastFour)
	s.Equal(card.CVV, found.CVV)
	s.Equal(card.Name, found.Name)
	s.True(found.SpendingLimit.Equal(card.SpendingLimit))
	s.True(found.CurrentSpent.IsZero())
	s.True(found.IsActive)
}

// TestUniqueCardNumber verifies the UNIQUE constraint maps to ErrConflict.
func (s *PostgresCardStoreSuite) TestUniqueCardNumber() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTestCard("4111000011110002")))
	s.Require().ErrorIs(s.store.Create(ctx, newTestCard("4111000011110002")), sentinel.ErrConflict)
}

// TestConcurrentSpend verifies the row lock serializes limit checks: with a
// 1000 limit and 50 concurrent 100 spends, exactly 10 succeed.
func (s *PostgresCardStoreSuite) TestConcurrentSpend() {
	ctx := context.Background()
	card := newTestCard("4111000011110003")
	s.Require().NoError(s.store.Create(ctx, card))

	const goroutines = 50
	amount := decimal.NewFromInt(100)

	var wg sync.WaitGroup
	var approved atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, card.ID,
				func(c *models.Card) error {
					if reason := c.CheckPurchase(time.Now(), amount, "Shop"); reason != "" {
						return sentinel.ErrInvalidState
					}
					return nil
				},
				func(c *models.Card) { c.ApplySpend(amount, time.Now().UTC()) },
			)
			if err == nil {
				approved.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(10), approved.Load())

	final, err := s.store.FindByID(ctx, card.ID)
	s.Require().NoError(err)
	s.True(final.CurrentSpent.Equal(decimal.NewFromInt(1000)))
}

// TestDelete verifies deletion and not-found mapping.
func (s *PostgresCardStoreSuite) TestDelete() {
	ctx := context.Background()
	card := newTestCard("4111000011110004")
	s.Require().NoError(s.store.Create(ctx, card))
	s.Require().NoError(s.store.Delete(ctx, card.ID))

	_, err := s.store.FindByID(ctx, card.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.Require().ErrorIs(s.store.Delete(ctx, card.ID), sentinel.ErrNotFound)
}
