// Package domain holds the typed identifiers shared across modules.
//
// IDs are distinct named UUID types so a CardID can never be passed where a
// UserID is expected. Parsing enforces the invariant that IDs are valid,
// non-nil UUIDs at trust boundaries (HTTP handlers, store scans).
package domain

import (
	"github.com/google/uuid"

	derrors "cardvault/pkg/domain-errors"
)

type (
	// UserID identifies the owner of cards, supplied by the identity provider.
	UserID uuid.UUID
	// CardID identifies a virtual card.
	CardID uuid.UUID
	// TransactionID identifies one authorization attempt record.
	TransactionID uuid.UUID
)

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id CardID) String() string        { return uuid.UUID(id).String() }
func (id TransactionID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id UserID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CardID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewCardID generates a fresh random card ID.
func NewCardID() CardID { return CardID(uuid.New()) }

// NewTransactionID generates a fresh random transaction ID.
func NewTransactionID() TransactionID { return TransactionID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, derrors.New(derrors.CodeInvalidInput, "id is required")
	}
	if len(s) > 64 {
		return uuid.Nil, derrors.New(derrors.CodeInvalidInput, "id is too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, derrors.New(derrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, derrors.New(derrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseCardID parses and validates a card ID from its string form.
func ParseCardID(s string) (CardID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CardID{}, err
	}
	return CardID(u), nil
}

// ParseTransactionID parses and validates a transaction ID from its string form.
func ParseTransactionID(s string) (TransactionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionID(u), nil
}

// MarshalText implements encoding.TextMarshaler so IDs render as UUID strings
// in JSON payloads.
func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id CardID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id TransactionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Unlike the Parse helpers
// it accepts the nil UUID so optional fields can round-trip.
func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return derrors.New(derrors.CodeInvalidInput, "id must be a valid UUID")
	}
	*id = UserID(u)
	return nil
}

func (id *CardID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return derrors.New(derrors.CodeInvalidInput, "id must be a valid UUID")
	}
	*id = CardID(u)
	return nil
}

func (id *TransactionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return derrors.New(derrors.CodeInvalidInput, "id must be a valid UUID")
	}
	*id = TransactionID(u)
	return nil
}
