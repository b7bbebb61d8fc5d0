package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"registrar/internal/registry/models"
	id "registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
	platformtx "registrar/pkg/platform/tx"
)

// Postgres persists records and the owner index in PostgreSQL. Index
// reconciliation runs in the same transaction as the record write.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS domain_records (
			name          TEXT        NOT NULL,
			tld           TEXT        NOT NULL,
			owner         UUID        NOT NULL,
			resolves_to   UUID        NOT NULL,
			registered_at TIMESTAMPTZ NOT NULL,
			expires_at    TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (name, tld)
		);
		CREATE TABLE IF NOT EXISTS owner_index (
			account UUID PRIMARY KEY,
			name    TEXT NOT NULL,
			tld     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS owner_index_by_key ON owner_index (name, tld);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, key models.RecordKey) (*models.DomainRecord, error) {
	const query = `
		SELECT owner, resolves_to, registered_at, expires_at
		FROM domain_records
		WHERE name = $1 AND tld = $2
	`
	var (
		owner, target uuid.UUID
		record        models.DomainRecord
	)
	err := s.db.QueryRowContext(ctx, query, key.Name, key.TLD).
		Scan(&owner, &target, &record.RegisteredAt, &record.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get record %s: %w", key, err)
	}
	record.Owner = id.AccountID(owner)
	record.ResolvesTo = id.AccountID(target)
	record.TLD = key.TLD
	return &record, nil
}

func (s *Postgres) IsAvailable(ctx context.Context, key models.RecordKey, now time.Time) (bool, error) {
	const query = `SELECT expires_at FROM domain_records WHERE name = $1 AND tld = $2`
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, query, key.Name, key.TLD).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("check availability %s: %w", key, err)
	}
	return !now.Before(expiresAt), nil
}

func (s *Postgres) Put(ctx context.Context, key models.RecordKey, record *models.DomainRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return putTx(ctx, tx, key, record)
	})
}

func (s *Postgres) PutBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	names := make([]string, len(entries))
	tlds := make([]string, len(entries))
	owners := make([]string, len(entries))
	targets := make([]string, len(entries))
	registered := make([]time.Time, len(entries))
	expires := make([]time.Time, len(entries))
	for i, e := range entries {
		names[i] = e.Key.Name
		tlds[i] = e.Key.TLD
		owners[i] = e.Record.Owner.String()
		targets[i] = e.Record.ResolvesTo.String()
		registered[i] = e.Record.RegisteredAt
		expires[i] = e.Record.ExpiresAt
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		// Batch upsert with unnest keeps this one round trip per batch.
		const upsert = `
			INSERT INTO domain_records (name, tld, owner, resolves_to, registered_at, expires_at)
			SELECT * FROM unnest(
				$1::text[], $2::text[], $3::uuid[], $4::uuid[], $5::timestamptz[], $6::timestamptz[]
			)
			ON CONFLICT (name, tld) DO UPDATE SET
				owner         = EXCLUDED.owner,
				resolves_to   = EXCLUDED.resolves_to,
				registered_at = EXCLUDED.registered_at,
				expires_at    = EXCLUDED.expires_at
		`
		if _, err := tx.ExecContext(ctx, upsert,
			pq.Array(names), pq.Array(tlds), pq.Array(owners), pq.Array(targets),
			pq.Array(registered), pq.Array(expires),
		); err != nil {
			return fmt.Errorf("batch upsert records: %w", err)
		}
		for _, e := range entries {
			if err := reconcileIndexTx(ctx, tx, e.Key, e.Record.ResolvesTo); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) HolderOf(ctx context.Context, acct id.AccountID) (models.RecordKey, error) {
	const query = `SELECT name, tld FROM owner_index WHERE account = $1`
	var key models.RecordKey
	err := s.db.QueryRowContext(ctx, query, acct.String()).Scan(&key.Name, &key.TLD)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecordKey{}, sentinel.ErrNotFound
		}
		return models.RecordKey{}, fmt.Errorf("holder of %s: %w", acct, err)
	}
	return key, nil
}

// inTx runs fn inside a transaction, joining an ambient one when a caller
// has already opened it.
func (s *Postgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if ambient, ok := platformtx.From(ctx); ok {
		return fn(ambient)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func putTx(ctx context.Context, tx *sql.Tx, key models.RecordKey, record *models.DomainRecord) error {
	const upsert = `
		INSERT INTO domain_records (name, tld, owner, resolves_to, registered_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name, tld) DO UPDATE SET
			owner         = EXCLUDED.owner,
			resolves_to   = EXCLUDED.resolves_to,
			registered_at = EXCLUDED.registered_at,
			expires_at    = EXCLUDED.expires_at
	`
	if _, err := tx.ExecContext(ctx, upsert,
		key.Name, key.TLD,
		record.Owner.String(), record.ResolvesTo.String(),
		record.RegisteredAt, record.ExpiresAt,
	); err != nil {
		return fmt.Errorf("upsert record %s: %w", key, err)
	}
	return reconcileIndexTx(ctx, tx, key, record.ResolvesTo)
}

// reconcileIndexTx clears any stale entry pointing at key and indexes the
// current resolution target.
func reconcileIndexTx(ctx context.Context, tx *sql.Tx, key models.RecordKey, target id.AccountID) error {
	const clear = `DELETE FROM owner_index WHERE name = $1 AND tld = $2 AND account <> $3`
	if _, err := tx.ExecContext(ctx, clear, key.Name, key.TLD, target.String()); err != nil {
		return fmt.Errorf("clear stale index %s: %w", key, err)
	}
	const upsert = `
		INSERT INTO owner_index (account, name, tld)
		VALUES ($1, $2, $3)
		ON CONFLICT (account) DO UPDATE SET name = EXCLUDED.name, tld = EXCLUDED.tld
	`
	if _, err := tx.ExecContext(ctx, upsert, target.String(), key.Name, key.TLD); err != nil {
		return fmt.Errorf("index holder %s: %w", target, err)
	}
	return nil
}
