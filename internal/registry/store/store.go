// Package store persists domain records and the reverse owner index.
//
// The owner index is not independent state: every record write reconciles it
// in the same atomic step, so an identity maps to at most one key and index
// entries always describe a record's current resolution target.
package store

import (
	"context"
	"time"

	"registrar/internal/registry/models"
	id "registrar/pkg/domain"
)

// Entry pairs a key with its record for batch writes.
type Entry struct {
	Key    models.RecordKey
	Record *models.DomainRecord
}

// Store is the authoritative mapping from composite key to record.
//
// Implementations return pkg/platform/sentinel errors for factual states
// (ErrNotFound); validation belongs to callers. Put overwrites
// unconditionally — the engine is responsible for availability checks.
type Store interface {
	// Get returns the record at key regardless of liveness.
	Get(ctx context.Context, key models.RecordKey) (*models.DomainRecord, error)

	// IsAvailable reports whether key can be registered at now: no record
	// exists, or the existing record has expired. Expiry never deletes.
	IsAvailable(ctx context.Context, key models.RecordKey, now time.Time) (bool, error)

	// Put writes the record and reconciles the owner index atomically:
	// any index entry pointing at key for a different identity is cleared,
	// then the record's resolution target is indexed at key.
	Put(ctx context.Context, key models.RecordKey, record *models.DomainRecord) error

	// PutBatch applies several Puts as one atomic write.
	PutBatch(ctx context.Context, entries []Entry) error

	// HolderOf returns the key currently indexed for the identity, or
	// sentinel.ErrNotFound. Liveness of the indexed record is the caller's
	// concern: stale entries for expired records are not cleared lazily.
	HolderOf(ctx context.Context, acct id.AccountID) (models.RecordKey, error)
}
