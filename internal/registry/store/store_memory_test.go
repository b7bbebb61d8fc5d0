package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"registrar/internal/registry/models"
	id "registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

type RecordStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *RecordStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestRecordStoreSuite(t *testing.T) {
	suite.Run(t, new(RecordStoreSuite))
}

func (s *RecordStoreSuite) newRecord(owner id.AccountID, expiresAt time.Time) *models.DomainRecord {
	return models.NewDomainRecord(owner, owner, "neo", s.now, expiresAt)
}

// TestGetAndPut verifies basic persistence and the not-found sentinel.
func (s *RecordStoreSuite) TestGetAndPut() {
	key := models.NewRecordKey("example", "neo")

	s.Run("returns ErrNotFound for unknown key", func() {
		_, err := s.store.Get(s.ctx, key)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("stores and retrieves a record", func() {
		owner := id.NewAccountID()
		record := s.newRecord(owner, s.now.Add(time.Hour))
		s.Require().NoError(s.store.Put(s.ctx, key, record))

		found, err := s.store.Get(s.ctx, key)
		s.Require().NoError(err)
		s.Equal(owner, found.Owner)
		s.Equal(owner, found.ResolvesTo)
	})

	s.Run("put overwrites unconditionally", func() {
		other := id.NewAccountID()
		record := s.newRecord(other, s.now.Add(2*time.Hour))
		s.Require().NoError(s.store.Put(s.ctx, key, record))

		found, err := s.store.Get(s.ctx, key)
		s.Require().NoError(err)
		s.Equal(other, found.Owner)
	})
}

// TestAvailability verifies expiry-based availability without deletion.
func (s *RecordStoreSuite) TestAvailability() {
	key := models.NewRecordKey("taken", "neo")

	s.Run("absent key is available", func() {
		ok, err := s.store.IsAvailable(s.ctx, key, s.now)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("live record blocks the key", func() {
		record := s.newRecord(id.NewAccountID(), s.now.Add(time.Hour))
		s.Require().NoError(s.store.Put(s.ctx, key, record))

		ok, err := s.store.IsAvailable(s.ctx, key, s.now)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("expired record frees the key but stays readable", func() {
		ok, err := s.store.IsAvailable(s.ctx, key, s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.True(ok)

		_, err = s.store.Get(s.ctx, key)
		s.Require().NoError(err)
	})
}

// TestHolderIndex verifies the reverse index tracks the current resolution
// target and is reconciled on every write.
func (s *RecordStoreSuite) TestHolderIndex() {
	key := models.NewRecordKey("held", "neo")
	owner := id.NewAccountID()

	s.Run("unknown identity has no holding", func() {
		_, err := s.store.HolderOf(s.ctx, owner)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("put indexes the resolution target", func() {
		record := s.newRecord(owner, s.now.Add(time.Hour))
		s.Require().NoError(s.store.Put(s.ctx, key, record))

		held, err := s.store.HolderOf(s.ctx, owner)
		s.Require().NoError(err)
		s.Equal(key, held)
	})

	s.Run("retargeting moves the index entry", func() {
		newTarget := id.NewAccountID()
		record := models.NewDomainRecord(owner, newTarget, "neo", s.now, s.now.Add(time.Hour))
		s.Require().NoError(s.store.Put(s.ctx, key, record))

		_, err := s.store.HolderOf(s.ctx, owner)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		held, err := s.store.HolderOf(s.ctx, newTarget)
		s.Require().NoError(err)
		s.Equal(key, held)
	})

	s.Run("superseding registration clears the previous holder", func() {
		successor := id.NewAccountID()
		record := s.newRecord(successor, s.now.Add(24*time.Hour))
		s.Require().NoError(s.store.Put(s.ctx, key, record))

		held, err := s.store.HolderOf(s.ctx, successor)
		s.Require().NoError(err)
		s.Equal(key, held)
	})
}

// TestPutBatch verifies batch writes land atomically with index maintenance.
func (s *RecordStoreSuite) TestPutBatch() {
	entries := []Entry{
		{Key: models.NewRecordKey("one", "neo"), Record: s.newRecord(id.NewAccountID(), s.now.Add(time.Hour))},
		{Key: models.NewRecordKey("two", "neo"), Record: s.newRecord(id.NewAccountID(), s.now.Add(time.Hour))},
	}
	s.Require().NoError(s.store.PutBatch(s.ctx, entries))

	for _, e := range entries {
		found, err := s.store.Get(s.ctx, e.Key)
		s.Require().NoError(err)
		s.Equal(e.Record.Owner, found.Owner)

		held, err := s.store.HolderOf(s.ctx, e.Record.ResolvesTo)
		s.Require().NoError(err)
		s.Equal(e.Key, held)
	}
}
