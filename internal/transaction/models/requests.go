package models

import (
	"strings"

	"github.com/shopspring/decimal"

	id "cardvault/pkg/domain"
	derrors "cardvault/pkg/domain-errors"
)

const (
	maxMerchantNameLength = 255
	maxDescriptionLength  = 255
)

// CreateTransactionRequest is the POST /transactions body.
type CreateTransactionRequest struct {
	CardID       string          `json:"cardId"`
	Amount       decimal.Decimal `json:"amount"`
	MerchantName string          `json:"merchantName"`
	Description  string          `json:"description,omitempty"`

	parsedCardID id.CardID
}

func (r *CreateTransactionRequest) Normalize() {
	if r == nil {
		return
	}
	r.CardID = strings.TrimSpace(r.CardID)
	r.MerchantName = strings.TrimSpace(r.MerchantName)
	r.Description = strings.TrimSpace(r.Description)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *CreateTransactionRequest) Validate() error {
	if r == nil {
		return derrors.New(derrors.CodeBadRequest, "request is required")
	}

	if len(r.MerchantName) > maxMerchantNameLength {
		return derrors.New(derrors.CodeValidation, "merchantName must be 255 characters or less")
	}
	if len(r.Description) > maxDescriptionLength {
		return derrors.New(derrors.CodeValidation, "description must be 255 characters or less")
	}

	if r.CardID == "" {
		return derrors.New(derrors.CodeValidation, "cardId is required")
	}
	if r.MerchantName == "" {
		return derrors.New(derrors.CodeValidation, "merchantName is required")
	}

	cardID, err := id.ParseCardID(r.CardID)
	if err != nil {
		return derrors.New(derrors.CodeValidation, "cardId must be a valid UUID")
	}
	r.parsedCardID = cardID

	if !r.Amount.IsPositive() {
		return derrors.New(derrors.CodeValidation, "amount must be positive")
	}

	return nil
}

// ParsedCardID returns the card ID parsed during validation. Call only after
// Validate has succeeded.
func (r *CreateTransactionRequest) ParsedCardID() id.CardID {
	return r.parsedCardID
}
