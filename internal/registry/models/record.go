package models

import (
	"fmt"
	"time"

	"registrar/internal/registry/name"
	id "registrar/pkg/domain"
)

// RecordKey is the composite storage key for a record: canonical name plus
// the TLD it was registered under. One flat key space replaces the historical
// map-of-maps layout so backing stores stay interchangeable.
type RecordKey struct {
	Name string `json:"name"`
	TLD  string `json:"tld"`
}

// NewRecordKey canonicalizes both parts.
func NewRecordKey(rawName, rawTLD string) RecordKey {
	return RecordKey{Name: name.Canonicalize(rawName), TLD: name.Canonicalize(rawTLD)}
}

func (k RecordKey) String() string { return k.Name + "." + k.TLD }

// DomainRecord is one name binding.
//
// Invariants:
//   - Owner is fixed at creation; only a superseding registration after expiry
//     replaces it
//   - RegisteredAt is immutable once set
//   - ExpiresAt is strictly increasing across successful renewals
//   - Name (inside the key) is stored in canonical form
//
// Expiry does not delete the record: an expired row stays in storage, becomes
// invisible to resolution, and is eligible for overwrite by a fresh
// registration that restarts the lifecycle.
type DomainRecord struct {
	ResolvesTo   id.AccountID `json:"resolves_to"`
	Owner        id.AccountID `json:"owner"`
	RegisteredAt time.Time    `json:"registered_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
	TLD          string       `json:"tld"`
}

// NewDomainRecord creates a record for a first or superseding registration.
// The resolution target defaults to the owner when target is nil.
func NewDomainRecord(owner, target id.AccountID, tld string, now, expiresAt time.Time) *DomainRecord {
	if target.IsNil() {
		target = owner
	}
	return &DomainRecord{
		ResolvesTo:   target,
		Owner:        owner,
		RegisteredAt: now,
		ExpiresAt:    expiresAt,
		TLD:          tld,
	}
}

// IsExpired reports whether the record is past its validity window at now.
func (r *DomainRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// ApplyRenewal extends the expiry. newExpiry must already be computed
// (additive to the current value) and strictly later than the current one.
func (r *DomainRecord) ApplyRenewal(newExpiry time.Time) error {
	if !newExpiry.After(r.ExpiresAt) {
		return fmt.Errorf("renewal must extend expiry: %s is not after %s", newExpiry, r.ExpiresAt)
	}
	r.ExpiresAt = newExpiry
	return nil
}

// ApplyRetarget points the record at a new resolution target.
func (r *DomainRecord) ApplyRetarget(target id.AccountID) {
	r.ResolvesTo = target
}
