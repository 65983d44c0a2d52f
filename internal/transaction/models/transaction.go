// Package models defines the transaction aggregate and its request shapes.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	cardModel "cardvault/internal/card/models"
	id "cardvault/pkg/domain"
)

// Status is the terminal outcome of an authorization attempt. Values are
// wire-stable.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Transaction records one authorization attempt against a card. Approved and
// declined attempts are both recorded; transactions are append-only and never
// mutated after creation.
type Transaction struct {
	ID            id.TransactionID        `json:"id"`
	CardID        id.CardID               `json:"cardId"`
	Amount        decimal.Decimal         `json:"amount"`
	MerchantName  string                  `json:"merchantName"`
	Description   string                  `json:"description,omitempty"`
	Status        Status                  `json:"status"`
	DeclineReason cardModel.DeclineReason `json:"declineReason,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// NewSuccess records an approved purchase.
func NewSuccess(cardID id.CardID, amount decimal.Decimal, merchantName, description string, now time.Time) *Transaction {
	return &Transaction{
		ID:           id.NewTransactionID(),
		CardID:       cardID,
		Amount:       amount,
		MerchantName: merchantName,
		Description:  description,
		Status:       StatusSuccess,
		CreatedAt:    now,
	}
}

// NewDeclined records a rejected purchase with the rule that declined it.
func NewDeclined(cardID id.CardID, amount decimal.Decimal, merchantName, description string, reason cardModel.DeclineReason, now time.Time) *Transaction {
	return &Transaction{
		ID:            id.NewTransactionID(),
		CardID:        cardID,
		Amount:        amount,
		MerchantName:  merchantName,
		Description:   description,
		Status:        StatusFailed,
		DeclineReason: reason,
		CreatedAt:     now,
	}
}

// Clone returns a copy so stores never hand out aliased pointers.
func (t *Transaction) Clone() *Transaction {
	cp := *t
	return &cp
}

// WithCard annotates a transaction with the last four digits of its card for
// list responses that span multiple cards.
type WithCard struct {
	Transaction
	CardLastFour string `json:"lastFourDigits"`
}

// Summary aggregates a set of transactions for the dashboard endpoint.
// TotalSpent sums only successful amounts.
type Summary struct {
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}

// Summarize folds transactions into a Summary.
func Summarize(transactions []*Transaction) Summary {
	summary := Summary{TotalSpent: decimal.Zero}
	for _, tx := range transactions {
		summary.Total++
		switch tx.Status {
		case StatusSuccess:
			summary.Succeeded++
			summary.TotalSpent = summary.TotalSpent.Add(tx.Amount)
		case StatusFailed:
			summary.Failed++
		}
	}
	return summary
}
