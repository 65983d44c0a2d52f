package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "cardvault/pkg/domain"
	derrors "cardvault/pkg/domain-errors"
)

// Card is the aggregate root for a simulated virtual credit card.
//
// Invariants:
//   - Number is 16 digits starting with the issuing prefix
//   - LastFour is the trailing 4 digits of Number
//   - SpendingLimit is positive; CurrentSpent starts at 0
//   - CurrentSpent never exceeds SpendingLimit: the limit check and the
//     spend mutation run inside the store's Execute critical section
//   - CreatedAt is immutable after construction
//
// Number and CVV are stored raw but never leave the service: every response
// boundary goes through the Masked projection.
type Card struct {
	ID            id.CardID
	UserID        id.UserID
	Number        string
	LastFour      string
	CVV           string
	Name          string
	MerchantLock  string
	SpendingLimit decimal.Decimal
	CurrentSpent  decimal.Decimal
	IsActive      bool
	ExpiryDate    time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewCard constructs an active card with zero spend.
func NewCard(cardID id.CardID, userID id.UserID, number, cvv string, params CreateCardParams, now time.Time) (*Card, error) {
	if len(number) != 16 {
		return nil, derrors.New(derrors.CodeInvariantViolation, "card number must be 16 digits")
	}
	if !params.SpendingLimit.IsPositive() {
		return nil, derrors.New(derrors.CodeInvariantViolation, "spending limit must be positive")
	}
	return &Card{
		ID:            cardID,
		UserID:        userID,
		Number:        number,
		LastFour:      number[len(number)-4:],
		CVV:           cvv,
		Name:          params.Name,
		MerchantLock:  params.MerchantLock,
		SpendingLimit: params.SpendingLimit,
		CurrentSpent:  decimal.Zero,
		IsActive:      true,
		ExpiryDate:    params.ExpiryDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CreateCardParams carries the validated issuance inputs into the service.
type CreateCardParams struct {
	SpendingLimit decimal.Decimal
	ExpiryDate    time.Time
	MerchantLock  string
	Name          string
}

// UpdateCardParams carries a partial update. Nil fields keep prior values;
// MerchantLock set to the empty string clears the lock.
type UpdateCardParams struct {
	IsActive      *bool
	SpendingLimit *decimal.Decimal
	MerchantLock  *string
}

// ApplyUpdate merges the partial update into the card.
func (c *Card) ApplyUpdate(params UpdateCardParams, now time.Time) {
	if params.IsActive != nil {
		c.IsActive = *params.IsActive
	}
	if params.SpendingLimit != nil {
		c.SpendingLimit = *params.SpendingLimit
	}
	if params.MerchantLock != nil {
		c.MerchantLock = *params.MerchantLock
	}
	c.UpdatedAt = now
}

// IsExpired reports whether the card has passed its expiry timestamp.
func (c *Card) IsExpired(now time.Time) bool {
	return now.After(c.ExpiryDate)
}

// Remaining returns the unspent portion of the limit.
func (c *Card) Remaining() decimal.Decimal {
	return c.SpendingLimit.Sub(c.CurrentSpent)
}

// AllowsMerchant checks the merchant lock: when a lock is set, the merchant
// name must contain it as a case-insensitive substring.
func (c *Card) AllowsMerchant(merchantName string) bool {
	if c.MerchantLock == "" {
		return true
	}
	return strings.Contains(strings.ToLower(merchantName), strings.ToLower(c.MerchantLock))
}

// DeclineReason identifies which authorization rule rejected a purchase.
// Values are wire-stable.
type DeclineReason string

const (
	DeclineCardInactive    DeclineReason = "card_inactive"
	DeclineCardExpired     DeclineReason = "card_expired"
	DeclineLimitExceeded   DeclineReason = "limit_exceeded"
	DeclineMerchantBlocked DeclineReason = "merchant_blocked"
)

// Message returns the human-readable reason string for a decline.
func (r DeclineReason) Message() string {
	switch r {
	case DeclineCardInactive:
		return "card is inactive"
	case DeclineCardExpired:
		return "card is expired"
	case DeclineLimitExceeded:
		return "transaction exceeds spending limit"
	case DeclineMerchantBlocked:
		return "merchant not allowed for this card"
	default:
		return string(r)
	}
}

// CheckPurchase evaluates the authorization rules in order and returns the
// first failing rule, or "" when the purchase is allowed. Call inside the
// store's Execute critical section so the limit check and ApplySpend see the
// same CurrentSpent.
func (c *Card) CheckPurchase(now time.Time, amount decimal.Decimal, merchantName string) DeclineReason {
	if !c.IsActive {
		return DeclineCardInactive
	}
	if c.IsExpired(now) {
		return DeclineCardExpired
	}
	if c.CurrentSpent.Add(amount).GreaterThan(c.SpendingLimit) {
		return DeclineLimitExceeded
	}
	if !c.AllowsMerchant(merchantName) {
		return DeclineMerchantBlocked
	}
	return ""
}

// ApplySpend commits an authorized amount against the limit.
func (c *Card) ApplySpend(amount decimal.Decimal, now time.Time) {
	c.CurrentSpent = c.CurrentSpent.Add(amount)
	c.UpdatedAt = now
}

// Masked is the public projection of a Card. It is the only card shape that
// crosses the service boundary.
type Masked struct {
	ID            id.CardID       `json:"id"`
	UserID        id.UserID       `json:"userId"`
	CardNumber    string          `json:"cardNumber"`
	LastFour      string          `json:"lastFourDigits"`
	CVV           string          `json:"cvv"`
	Name          string          `json:"name,omitempty"`
	MerchantLock  string          `json:"merchantLock,omitempty"`
	SpendingLimit decimal.Decimal `json:"spendingLimit"`
	CurrentSpent  decimal.Decimal `json:"currentSpent"`
	IsActive      bool            `json:"isActive"`
	ExpiryDate    time.Time       `json:"expiryDate"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Mask projects the stored card into its public form. Raw number and CVV are
// replaced here and nowhere else.
func (c *Card) Mask() Masked {
	return Masked{
		ID:            c.ID,
		UserID:        c.UserID,
		CardNumber:    "**** **** **** " + c.LastFour,
		LastFour:      c.LastFour,
		CVV:           "***",
		Name:          c.Name,
		MerchantLock:  c.MerchantLock,
		SpendingLimit: c.SpendingLimit,
		CurrentSpent:  c.CurrentSpent,
		IsActive:      c.IsActive,
		ExpiryDate:    c.ExpiryDate,
		CreatedAt:     c.CreatedAt,
	}
}

// Clone returns a deep copy so the memory store never hands out aliased
// pointers.
func (c *Card) Clone() *Card {
	cp := *c
	return &cp
}
