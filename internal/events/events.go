// Package events defines the domain event feed. Services emit events through
// the Publisher port; sinks range from an in-memory buffer (tests,
// single-node dev) to a Kafka topic (franz-go).
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	id "cardvault/pkg/domain"
)

// Type names a domain event. Values are wire-stable.
type Type string

const (
	TypeCardIssued          Type = "card_issued"
	TypeCardUpdated         Type = "card_updated"
	TypeCardDeleted         Type = "card_deleted"
	TypeTransactionApproved Type = "transaction_approved"
	TypeTransactionDeclined Type = "transaction_declined"
)

// Event captures one domain action. Keep it transport-agnostic so sinks can
// fan out without knowing about HTTP or storage.
type Event struct {
	Type          Type              `json:"type"`
	Timestamp     time.Time         `json:"timestamp"`
	UserID        id.UserID         `json:"userId"`
	CardID        id.CardID         `json:"cardId"`
	TransactionID *id.TransactionID `json:"transactionId,omitempty"`
	Amount        *decimal.Decimal  `json:"amount,omitempty"`
	MerchantName  string            `json:"merchantName,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	RequestID     string            `json:"requestId,omitempty"`
}

// Publisher is the port services emit events through. Emission failures must
// never fail the business operation; implementations log and drop instead of
// propagating errors upward.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Emit(context.Context, Event) {}
