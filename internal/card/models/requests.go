package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	derrors "cardvault/pkg/domain-errors"
)

const (
	maxNameLength         = 100
	maxMerchantLockLength = 100
)

// CreateCardRequest is the POST /cards body.
type CreateCardRequest struct {
	SpendingLimit decimal.Decimal `json:"spendingLimit"`
	ExpiryDate    string          `json:"expiryDate"`
	MerchantLock  string          `json:"merchantLock,omitempty"`
	Name          string          `json:"name,omitempty"`

	parsedExpiry time.Time
}

func (r *CreateCardRequest) Normalize() {
	if r == nil {
		return
	}
	r.ExpiryDate = strings.TrimSpace(r.ExpiryDate)
	r.MerchantLock = strings.TrimSpace(r.MerchantLock)
	r.Name = strings.TrimSpace(r.Name)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *CreateCardRequest) Validate() error {
	if r == nil {
		return derrors.New(derrors.CodeBadRequest, "request is required")
	}

	if len(r.Name) > maxNameLength {
		return derrors.New(derrors.CodeValidation, "name must be 100 characters or less")
	}
	if len(r.MerchantLock) > maxMerchantLockLength {
		return derrors.New(derrors.CodeValidation, "merchantLock must be 100 characters or less")
	}

	if r.ExpiryDate == "" {
		return derrors.New(derrors.CodeValidation, "expiryDate is required")
	}

	if !r.SpendingLimit.IsPositive() {
		return derrors.New(derrors.CodeValidation, "spendingLimit must be positive")
	}

	expiry, err := time.Parse(time.RFC3339, r.ExpiryDate)
	if err != nil {
		return derrors.New(derrors.CodeValidation, "expiryDate must be a valid RFC3339 timestamp")
	}
	r.parsedExpiry = expiry

	return nil
}

// Params converts the validated request into service-layer parameters.
// Call only after Validate has succeeded.
func (r *CreateCardRequest) Params() CreateCardParams {
	return CreateCardParams{
		SpendingLimit: r.SpendingLimit,
		ExpiryDate:    r.parsedExpiry,
		MerchantLock:  r.MerchantLock,
		Name:          r.Name,
	}
}

// UpdateCardRequest is the PATCH /cards/{id} body. All fields are optional;
// absent fields keep their prior values. merchantLock may be set to the empty
// string to clear the lock.
type UpdateCardRequest struct {
	IsActive      *bool            `json:"isActive,omitempty"`
	SpendingLimit *decimal.Decimal `json:"spendingLimit,omitempty"`
	MerchantLock  *string          `json:"merchantLock,omitempty"`
}

func (r *UpdateCardRequest) Normalize() {
	if r == nil || r.MerchantLock == nil {
		return
	}
	trimmed := strings.TrimSpace(*r.MerchantLock)
	r.MerchantLock = &trimmed
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *UpdateCardRequest) Validate() error {
	if r == nil {
		return derrors.New(derrors.CodeBadRequest, "request is required")
	}

	if r.MerchantLock != nil && len(*r.MerchantLock) > maxMerchantLockLength {
		return derrors.New(derrors.CodeValidation, "merchantLock must be 100 characters or less")
	}

	if r.IsActive == nil && r.SpendingLimit == nil && r.MerchantLock == nil {
		return derrors.New(derrors.CodeValidation, "at least one of isActive, spendingLimit, merchantLock is required")
	}

	if r.SpendingLimit != nil && !r.SpendingLimit.IsPositive() {
		return derrors.New(derrors.CodeValidation, "spendingLimit must be positive")
	}

	return nil
}

// Params converts the validated request into service-layer parameters.
func (r *UpdateCardRequest) Params() UpdateCardParams {
	return UpdateCardParams{
		IsActive:      r.IsActive,
		SpendingLimit: r.SpendingLimit,
		MerchantLock:  r.MerchantLock,
	}
}
