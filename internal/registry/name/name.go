// Package name implements canonicalization and well-formedness rules for
// registrable names.
//
// The byte-level character check is deliberately shallow: it pairs UTF-8
// continuation bytes with a preceding multi-byte sequence using a single byte
// of lookback and does not validate sequence length or codepoint range.
// Substituting a strict UTF-8 validator would reject names the registry has
// historically accepted, so the permissiveness is part of the contract.
package name

import (
	"fmt"

	dErrors "registrar/pkg/domain-errors"
)

// MinLength and MaxLength bound the canonical byte length of a name,
// exclusive of its TLD.
const (
	MinLength = 1
	MaxLength = 63
)

var (
	ErrNameTooShort     = dErrors.New(dErrors.CodeValidation, "name is too short")
	ErrNameTooLong      = dErrors.New(dErrors.CodeValidation, "name is too long")
	ErrInvalidCharacter = dErrors.New(dErrors.CodeValidation, "name contains an invalid character")
)

// Canonicalize lower-cases ASCII letters and passes every other byte through
// unchanged. Canonical form is the storage key; the function is idempotent.
func Canonicalize(raw string) string {
	b := []byte(raw)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return raw
	}
	return string(b)
}

// Validate reports why a canonical name is not well-formed, or nil.
//
// Allowed bytes are ASCII digits, letters, hyphen, UTF-8 lead bytes
// (2-, 3- and 4-byte ranges), and continuation bytes that directly follow a
// lead or continuation byte. A continuation byte at position 0, or following
// a plain ASCII byte, is rejected.
func Validate(s string) error {
	if len(s) < MinLength {
		return ErrNameTooShort
	}
	if len(s) > MaxLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrNameTooLong, len(s), MaxLength)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isASCIIAllowed(c):
		case isLead(c):
		case isContinuation(c):
			if i == 0 || !(isLead(s[i-1]) || isContinuation(s[i-1])) {
				return fmt.Errorf("%w: stray continuation byte 0x%02x at index %d", ErrInvalidCharacter, c, i)
			}
		default:
			return fmt.Errorf("%w: byte 0x%02x at index %d", ErrInvalidCharacter, c, i)
		}
	}
	return nil
}

// IsWellFormed is the boolean form of Validate.
func IsWellFormed(s string) bool {
	return Validate(s) == nil
}

// CountEffectiveChars returns the visible character count used for pricing:
// one unit per ASCII byte or multi-byte lead byte, zero for continuation
// bytes. Distinct from the raw byte length used for the size bounds.
func CountEffectiveChars(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isContinuation(s[i]) {
			n++
		}
	}
	return n
}

func isASCIIAllowed(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c == '-':
		return true
	}
	return false
}

// isLead matches the 2-, 3- and 4-byte UTF-8 lead ranges. The upper ends
// (0xC0, 0xC1, 0xF5..0xF7) encode no valid codepoint but are accepted by the
// shallow check.
func isLead(c byte) bool {
	return c >= 0xC0 && c <= 0xF7
}

func isContinuation(c byte) bool {
	return c >= 0x80 && c <= 0xBF
}
