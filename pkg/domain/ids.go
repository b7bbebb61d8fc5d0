// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (an AccountID can never be passed where a RequestID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "registrar/pkg/domain-errors"
)

// AccountID identifies a payer/owner identity in the registry.
// The zero value (uuid.Nil) is the null identity: it is the absent sentinel
// returned by resolution and is never a valid owner or target.
type AccountID uuid.UUID

// NilAccount is the null identity.
var NilAccount = AccountID(uuid.Nil)

// NewAccountID generates a fresh random account identity.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// ParseAccountID parses and validates an account identity string.
// Rejects empty strings, malformed UUIDs, and the nil UUID.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return NilAccount, dErrors.New(dErrors.CodeInvalidInput, "account id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return NilAccount, dErrors.Wrap(err, dErrors.CodeInvalidInput, "account id must be a valid UUID")
	}
	if u == uuid.Nil {
		return NilAccount, dErrors.New(dErrors.CodeInvalidInput, "account id must not be nil")
	}
	return AccountID(u), nil
}

// IsNil reports whether the identity is the null identity.
func (a AccountID) IsNil() bool { return uuid.UUID(a) == uuid.Nil }

func (a AccountID) String() string { return uuid.UUID(a).String() }

// MarshalText implements encoding.TextMarshaler for JSON object keys and values.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*a = AccountID(u)
	return nil
}
