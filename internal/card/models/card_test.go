package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "cardvault/pkg/domain"
)

func testCard(t *testing.T, limit int64, lock string) *Card {
	t.Helper()
	card, err := NewCard(
		id.NewCardID(),
		id.UserID(uuid.New()),
		"4111222233334444",
		"123",
		CreateCardParams{
			SpendingLimit: decimal.NewFromInt(limit),
			ExpiryDate:    time.Now().Add(24 * time.Hour),
			MerchantLock:  lock,
		},
		time.Now(),
	)
	require.NoError(t, err)
	return card
}

func TestCheckPurchase(t *testing.T) {
	now := time.Now()

	t.Run("allows a purchase within all rules", func(t *testing.T) {
		card := testCard(t, 100, "")
		reason := card.CheckPurchase(now, decimal.NewFromInt(50), "Any Shop")
		assert.Empty(t, reason)
	})

	t.Run("declines an inactive card first", func(t *testing.T) {
		card := testCard(t, 100, "amazon")
		card.IsActive = false
		card.ExpiryDate = now.Add(-time.Hour) // expired too
		reason := card.CheckPurchase(now, decimal.NewFromInt(500), "other shop")
		assert.Equal(t, DeclineCardInactive, reason)
	})

	t.Run("declines an expired card before limit and merchant", func(t *testing.T) {
		card := testCard(t, 100, "amazon")
		card.ExpiryDate = now.Add(-time.Hour)
		reason := card.CheckPurchase(now, decimal.NewFromInt(500), "other shop")
		assert.Equal(t, DeclineCardExpired, reason)
	})

	t.Run("allows a purchase at the exact expiry instant", func(t *testing.T) {
		card := testCard(t, 100, "")
		card.ExpiryDate = now
		reason := card.CheckPurchase(now, decimal.NewFromInt(10), "shop")
		assert.Empty(t, reason)
	})

	t.Run("allows spending exactly up to the limit", func(t *testing.T) {
		card := testCard(t, 100, "")
		card.CurrentSpent = decimal.NewFromInt(60)
		reason := card.CheckPurchase(now, decimal.NewFromInt(40), "shop")
		assert.Empty(t, reason)
	})

	t.Run("declines one cent over the limit", func(t *testing.T) {
		card := testCard(t, 100, "")
		card.CurrentSpent = decimal.NewFromInt(60)
		reason := card.CheckPurchase(now, decimal.RequireFromString("40.01"), "shop")
		assert.Equal(t, DeclineLimitExceeded, reason)
	})

	t.Run("declines a merchant outside the lock", func(t *testing.T) {
		card := testCard(t, 100, "amazon")
		reason := card.CheckPurchase(now, decimal.NewFromInt(10), "Best Buy Store")
		assert.Equal(t, DeclineMerchantBlocked, reason)
	})

	t.Run("matches the merchant lock case-insensitively as a substring", func(t *testing.T) {
		card := testCard(t, 100, "amazon")
		reason := card.CheckPurchase(now, decimal.NewFromInt(10), "AMAZON Marketplace EU")
		assert.Empty(t, reason)
	})
}

func TestApplySpend(t *testing.T) {
	card := testCard(t, 100, "")
	now := time.Now()

	card.ApplySpend(decimal.RequireFromString("19.99"), now)
	assert.True(t, card.CurrentSpent.Equal(decimal.RequireFromString("19.99")))
	assert.True(t, card.Remaining().Equal(decimal.RequireFromString("80.01")))
}

func TestMask(t *testing.T) {
	card := testCard(t, 100, "amazon")
	masked := card.Mask()

	assert.Equal(t, "**** **** **** 4444", masked.CardNumber)
	assert.Equal(t, "4444", masked.LastFour)
	assert.Equal(t, "***", masked.CVV)
	assert.Equal(t, card.ID, masked.ID)
	assert.True(t, masked.SpendingLimit.Equal(card.SpendingLimit))

	// The raw values must survive on the aggregate itself.
	assert.Equal(t, "4111222233334444", card.Number)
	assert.Equal(t, "123", card.CVV)
}

func TestNewCardInvariants(t *testing.T) {
	t.Run("rejects a short number", func(t *testing.T) {
		_, err := NewCard(id.NewCardID(), id.UserID(uuid.New()), "4111", "123", CreateCardParams{
			SpendingLimit: decimal.NewFromInt(10),
			ExpiryDate:    time.Now().Add(time.Hour),
		}, time.Now())
		require.Error(t, err)
	})

	t.Run("rejects a non-positive limit", func(t *testing.T) {
		_, err := NewCard(id.NewCardID(), id.UserID(uuid.New()), "4111222233334444", "123", CreateCardParams{
			SpendingLimit: decimal.Zero,
			ExpiryDate:    time.Now().Add(time.Hour),
		}, time.Now())
		require.Error(t, err)
	})
}
