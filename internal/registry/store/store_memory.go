package store

import (
	"context"
	"sync"
	"time"

	"registrar/internal/registry/models"
	id "registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// InMemory is the map-backed Store used by unit tests and single-node runs.
// Reads take the shared lock so they observe either the pre- or post-state of
// any write, never a partial one.
type InMemory struct {
	mu      sync.RWMutex
	records map[models.RecordKey]models.DomainRecord
	holders map[id.AccountID]models.RecordKey
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[models.RecordKey]models.DomainRecord),
		holders: make(map[id.AccountID]models.RecordKey),
	}
}

func (s *InMemory) Get(_ context.Context, key models.RecordKey) (*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *InMemory) IsAvailable(_ context.Context, key models.RecordKey, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return true, nil
	}
	return record.IsExpired(now), nil
}

func (s *InMemory) Put(_ context.Context, key models.RecordKey, record *models.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(key, record)
	return nil
}

func (s *InMemory) PutBatch(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.putLocked(e.Key, e.Record)
	}
	return nil
}

// putLocked writes the record and reconciles the holder index under the lock.
func (s *InMemory) putLocked(key models.RecordKey, record *models.DomainRecord) {
	if prev, ok := s.records[key]; ok && prev.ResolvesTo != record.ResolvesTo {
		if held, ok := s.holders[prev.ResolvesTo]; ok && held == key {
			delete(s.holders, prev.ResolvesTo)
		}
	}
	s.records[key] = *record
	s.holders[record.ResolvesTo] = key
}

func (s *InMemory) HolderOf(_ context.Context, acct id.AccountID) (models.RecordKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.holders[acct]
	if !ok {
		return models.RecordKey{}, sentinel.ErrNotFound
	}
	return key, nil
}
