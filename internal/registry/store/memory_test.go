package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"namereg/internal/registry/models"
	"namereg/pkg/domain"
	"namereg/pkg/platform/sentinel"
	"namereg/pkg/testutil"
)

const (
	ownerA = domain.Identity("owner-a")
	ownerB = domain.Identity("owner-b")
)

type MemorySuite struct {
	suite.Suite
	store *Memory
	ctx   context.Context
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemorySuite))
}

func (s *MemorySuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func (s *MemorySuite) create(name string, owner domain.Identity) *models.Record {
	record, err := models.NewRecord(name, owner, owner, "hash", testutil.FixedTime())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, record))
	return record
}

func (s *MemorySuite) TestCreateAndFind() {
	s.Run("round trip", func() {
		created := s.create("alpha", ownerA)
		found, err := s.store.Find(s.ctx, "alpha")
		s.Require().NoError(err)
		s.Equal(created, found)
	})

	s.Run("duplicate name conflicts", func() {
		s.create("dup", ownerA)
		record, err := models.NewRecord("dup", ownerB, ownerB, "hash", testutil.FixedTime())
		s.Require().NoError(err)
		s.ErrorIs(s.store.Create(s.ctx, record), sentinel.ErrConflict)
	})

	s.Run("unknown name", func() {
		_, err := s.store.Find(s.ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("find returns a copy", func() {
		s.create("isolated", ownerA)
		found, err := s.store.Find(s.ctx, "isolated")
		s.Require().NoError(err)
		found.ContentHash = "mutated"

		again, err := s.store.Find(s.ctx, "isolated")
		s.Require().NoError(err)
		s.Equal("hash", again.ContentHash)
	})

	s.Run("create does not alias the caller's record", func() {
		record := s.create("detached", ownerA)
		record.ContentHash = "mutated"

		stored, err := s.store.Find(s.ctx, "detached")
		s.Require().NoError(err)
		s.Equal("hash", stored.ContentHash)
	})
}

func (s *MemorySuite) TestUpdates() {
	s.Run("target", func() {
		s.create("t", ownerA)
		s.Require().NoError(s.store.UpdateTarget(s.ctx, "t", ownerB))
		record, err := s.store.Find(s.ctx, "t")
		s.Require().NoError(err)
		s.Equal(ownerB, record.Target)
		s.Equal(ownerA, record.Owner)
	})

	s.Run("content hash", func() {
		s.create("h", ownerA)
		s.Require().NoError(s.store.UpdateContentHash(s.ctx, "h", "hash-2"))
		record, err := s.store.Find(s.ctx, "h")
		s.Require().NoError(err)
		s.Equal("hash-2", record.ContentHash)
	})

	s.Run("updates on unknown names", func() {
		s.ErrorIs(s.store.UpdateTarget(s.ctx, "nope", ownerB), sentinel.ErrNotFound)
		s.ErrorIs(s.store.UpdateContentHash(s.ctx, "nope", "h"), sentinel.ErrNotFound)
		s.ErrorIs(s.store.Transfer(s.ctx, "nope", ownerB), sentinel.ErrNotFound)
	})
}

func (s *MemorySuite) TestOwnerIndex() {
	s.Run("create indexes the name", func() {
		s.create("a", ownerA)
		s.create("b", ownerA)
		names, err := s.store.ListByOwner(s.ctx, ownerA)
		s.Require().NoError(err)
		s.ElementsMatch([]string{"a", "b"}, names)
	})

	s.Run("unknown owner lists empty", func() {
		names, err := s.store.ListByOwner(s.ctx, "nobody")
		s.Require().NoError(err)
		s.Empty(names)
	})

	s.Run("listed slice is a copy", func() {
		s.create("pinned", ownerB)
		names, err := s.store.ListByOwner(s.ctx, ownerB)
		s.Require().NoError(err)
		names[0] = "clobbered"

		again, err := s.store.ListByOwner(s.ctx, ownerB)
		s.Require().NoError(err)
		s.Equal([]string{"pinned"}, again)
	})
}

func (s *MemorySuite) TestTransfer() {
	s.Run("moves the index entry exactly once", func() {
		s.create("one", ownerA)
		s.create("two", ownerA)
		s.create("three", ownerA)

		s.Require().NoError(s.store.Transfer(s.ctx, "two", ownerB))

		fromA, err := s.store.ListByOwner(s.ctx, ownerA)
		s.Require().NoError(err)
		s.ElementsMatch([]string{"one", "three"}, fromA)

		toB, err := s.store.ListByOwner(s.ctx, ownerB)
		s.Require().NoError(err)
		s.Equal([]string{"two"}, toB)

		record, err := s.store.Find(s.ctx, "two")
		s.Require().NoError(err)
		s.Equal(ownerB, record.Owner)
	})

	s.Run("removal swaps with the last entry", func() {
		store := NewMemory()
		for _, name := range []string{"first", "middle", "last"} {
			record, err := models.NewRecord(name, ownerA, ownerA, "hash", testutil.FixedTime())
			s.Require().NoError(err)
			s.Require().NoError(store.Create(s.ctx, record))
		}

		s.Require().NoError(store.Transfer(s.ctx, "first", ownerB))

		names, err := store.ListByOwner(s.ctx, ownerA)
		s.Require().NoError(err)
		s.Equal([]string{"last", "middle"}, names)
	})

	s.Run("emptied owners drop out of the index", func() {
		store := NewMemory()
		record, err := models.NewRecord("solo", ownerA, ownerA, "hash", testutil.FixedTime())
		s.Require().NoError(err)
		s.Require().NoError(store.Create(s.ctx, record))
		s.Require().NoError(store.Transfer(s.ctx, "solo", ownerB))

		store.mu.RLock()
		_, stillIndexed := store.owned[ownerA]
		store.mu.RUnlock()
		s.False(stillIndexed)
	})

	s.Run("transfer back and forth stays consistent", func() {
		store := NewMemory()
		record, err := models.NewRecord("pingpong", ownerA, ownerA, "hash", testutil.FixedTime())
		s.Require().NoError(err)
		s.Require().NoError(store.Create(s.ctx, record))

		for i := 0; i < 5; i++ {
			s.Require().NoError(store.Transfer(s.ctx, "pingpong", ownerB))
			s.Require().NoError(store.Transfer(s.ctx, "pingpong", ownerA))
		}

		names, err := store.ListByOwner(s.ctx, ownerA)
		s.Require().NoError(err)
		s.Equal([]string{"pingpong"}, names)
		gone, err := store.ListByOwner(s.ctx, ownerB)
		s.Require().NoError(err)
		s.Empty(gone)
	})
}
