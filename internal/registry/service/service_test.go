package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"namereg/internal/events"
	"namereg/internal/registry/models"
	"namereg/internal/registry/store"
	"namereg/pkg/domain"
	"namereg/pkg/requestcontext"
	"namereg/pkg/testutil"
)

const (
	callerA = domain.Identity("alice-id")
	callerB = domain.Identity("bob-id")
	callerC = domain.Identity("carol-id")
	callerD = domain.Identity("dave-id")
)

type ServiceSuite struct {
	suite.Suite
	store     *store.Memory
	published *events.Memory
	svc       *Service
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.published = events.NewMemory()
	s.svc = New(s.store, WithPublisher(s.published), WithAdmin("deployer-id"))
	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedTime())
}

func (s *ServiceSuite) register(name string) *models.Record {
	record, err := s.svc.Register(s.ctx, name, "hash-1", callerB, callerA)
	s.Require().NoError(err)
	return record
}

func (s *ServiceSuite) TestRegisterAndResolve() {
	s.Run("resolve returns exactly the stored tuple", func() {
		record := s.register("alice")

		resolved, err := s.svc.Resolve(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(callerA, resolved.Owner)
		s.Equal(callerB, resolved.Target)
		s.Equal("hash-1", resolved.ContentHash)
		s.True(resolved.RegisteredAt.Equal(record.RegisteredAt))
	})

	s.Run("registration flips availability", func() {
		available, err := s.svc.IsAvailable(s.ctx, "fresh")
		s.Require().NoError(err)
		s.True(available)

		s.register("fresh")

		available, err = s.svc.IsAvailable(s.ctx, "fresh")
		s.Require().NoError(err)
		s.False(available)
	})

	s.Run("registeredAt comes from the request clock", func() {
		record := s.register("clocked")
		s.True(record.RegisteredAt.Equal(testutil.FixedTime()))
	})

	s.Run("owner index gains the name", func() {
		s.register("indexed")
		names, err := s.svc.NamesOwnedBy(s.ctx, callerA)
		s.Require().NoError(err)
		s.Contains(names, "indexed")
	})
}

func (s *ServiceSuite) TestRegisterValidation() {
	s.Run("empty name", func() {
		_, err := s.svc.Register(s.ctx, "", "hash", callerB, callerA)
		var target *models.NameEmptyError
		s.Require().ErrorAs(err, &target)
	})

	s.Run("64-byte name registers, 65-byte fails", func() {
		ok := strings.Repeat("x", 64)
		_, err := s.svc.Register(s.ctx, ok, "hash", callerB, callerA)
		s.Require().NoError(err)

		tooLong := strings.Repeat("x", 65)
		_, err = s.svc.Register(s.ctx, tooLong, "hash", callerB, callerA)
		var target *models.NameTooLongError
		s.Require().ErrorAs(err, &target)
		s.Equal(tooLong, target.Name)
	})

	s.Run("double registration always fails and leaves the first record intact", func() {
		s.register("taken")

		_, err := s.svc.Register(s.ctx, "taken", "hash-2", callerC, callerB)
		var target *models.NameAlreadyRegisteredError
		s.Require().ErrorAs(err, &target)
		s.Equal("taken", target.Name)

		resolved, err := s.svc.Resolve(s.ctx, "taken")
		s.Require().NoError(err)
		s.Equal(callerA, resolved.Owner)
		s.Equal("hash-1", resolved.ContentHash)
	})

	s.Run("null target", func() {
		_, err := s.svc.Register(s.ctx, "nulltarget", "hash", domain.Zero, callerA)
		var target *models.InvalidTargetError
		s.Require().ErrorAs(err, &target)
	})

	s.Run("empty content hash", func() {
		_, err := s.svc.Register(s.ctx, "nohash", "", callerB, callerA)
		var target *models.InvalidContentHashError
		s.Require().ErrorAs(err, &target)
	})

	s.Run("existence check precedes field validity", func() {
		s.register("ordered")
		// Both failures apply; the earlier check in the operation wins.
		_, err := s.svc.Register(s.ctx, "ordered", "", domain.Zero, callerA)
		var target *models.NameAlreadyRegisteredError
		s.Require().ErrorAs(err, &target)
	})

	s.Run("failed registration leaves no state", func() {
		_, err := s.svc.Register(s.ctx, "ghost", "", callerB, callerA)
		s.Require().Error(err)

		available, err := s.svc.IsAvailable(s.ctx, "ghost")
		s.Require().NoError(err)
		s.True(available)
		names, err := s.svc.NamesOwnedBy(s.ctx, callerA)
		s.Require().NoError(err)
		s.NotContains(names, "ghost")
	})
}

func (s *ServiceSuite) TestCaseSensitivity() {
	_, err := s.svc.Register(s.ctx, "alice", "hash-lower", callerB, callerA)
	s.Require().NoError(err)
	_, err = s.svc.Register(s.ctx, "ALICE", "hash-upper", callerC, callerB)
	s.Require().NoError(err)

	lower, err := s.svc.Resolve(s.ctx, "alice")
	s.Require().NoError(err)
	upper, err := s.svc.Resolve(s.ctx, "ALICE")
	s.Require().NoError(err)

	s.Equal(callerA, lower.Owner)
	s.Equal(callerB, upper.Owner)
	s.Equal("hash-lower", lower.ContentHash)
	s.Equal("hash-upper", upper.ContentHash)
}

func (s *ServiceSuite) TestUpdateTarget() {
	s.Run("owner can repoint the name", func() {
		s.register("site")
		record, err := s.svc.UpdateTarget(s.ctx, "site", callerC, callerA)
		s.Require().NoError(err)
		s.Equal(callerC, record.Target)

		resolved, err := s.svc.Resolve(s.ctx, "site")
		s.Require().NoError(err)
		s.Equal(callerC, resolved.Target)
	})

	s.Run("unknown name", func() {
		_, err := s.svc.UpdateTarget(s.ctx, "missing", callerC, callerA)
		var target *models.NameNotFoundError
		s.Require().ErrorAs(err, &target)
		s.Equal("missing", target.Name)
	})

	s.Run("non-owner is rejected and the record is unchanged", func() {
		s.register("guarded")
		_, err := s.svc.UpdateTarget(s.ctx, "guarded", callerC, callerB)
		var target *models.NotOwnerError
		s.Require().ErrorAs(err, &target)
		s.Equal(callerB, target.Caller)

		resolved, err := s.svc.Resolve(s.ctx, "guarded")
		s.Require().NoError(err)
		s.Equal(callerB, resolved.Target)
	})

	s.Run("null target rejected", func() {
		s.register("nullcheck")
		_, err := s.svc.UpdateTarget(s.ctx, "nullcheck", domain.Zero, callerA)
		var target *models.InvalidTargetError
		s.Require().ErrorAs(err, &target)
	})

	s.Run("ownership check precedes target validity", func() {
		s.register("ordering")
		_, err := s.svc.UpdateTarget(s.ctx, "ordering", domain.Zero, callerB)
		var target *models.NotOwnerError
		s.Require().ErrorAs(err, &target)
	})
}

func (s *ServiceSuite) TestUpdateContentHash() {
	s.Run("owner can replace the hash", func() {
		s.register("content")
		record, err := s.svc.UpdateContentHash(s.ctx, "content", "hash-2", callerA)
		s.Require().NoError(err)
		s.Equal("hash-2", record.ContentHash)
	})

	s.Run("empty hash rejected", func() {
		s.register("emptyhash")
		_, err := s.svc.UpdateContentHash(s.ctx, "emptyhash", "", callerA)
		var target *models.InvalidContentHashError
		s.Require().ErrorAs(err, &target)
	})

	s.Run("non-owner rejected", func() {
		s.register("locked")
		_, err := s.svc.UpdateContentHash(s.ctx, "locked", "hash-2", callerC)
		var target *models.NotOwnerError
		s.Require().ErrorAs(err, &target)

		resolved, err := s.svc.Resolve(s.ctx, "locked")
		s.Require().NoError(err)
		s.Equal("hash-1", resolved.ContentHash)
	})
}

func (s *ServiceSuite) TestTransfer() {
	s.Run("moves ownership and the index entry", func() {
		s.register("movable")

		record, err := s.svc.Transfer(s.ctx, "movable", callerB, callerA)
		s.Require().NoError(err)
		s.Equal(callerB, record.Owner)

		resolved, err := s.svc.Resolve(s.ctx, "movable")
		s.Require().NoError(err)
		s.Equal(callerB, resolved.Owner)

		fromA, err := s.svc.NamesOwnedBy(s.ctx, callerA)
		s.Require().NoError(err)
		s.NotContains(fromA, "movable")

		toB, err := s.svc.NamesOwnedBy(s.ctx, callerB)
		s.Require().NoError(err)
		s.Equal(1, countOf(toB, "movable"))
	})

	s.Run("total name count is conserved across transfers", func() {
		for _, name := range []string{"one", "two", "three", "four"} {
			s.register(name)
		}
		_, err := s.svc.Transfer(s.ctx, "two", callerB, callerA)
		s.Require().NoError(err)
		_, err = s.svc.Transfer(s.ctx, "four", callerC, callerA)
		s.Require().NoError(err)

		total := 0
		for _, owner := range []domain.Identity{callerA, callerB, callerC, callerD} {
			names, err := s.svc.NamesOwnedBy(s.ctx, owner)
			s.Require().NoError(err)
			total += len(names)
		}
		s.Equal(4+1, total) // the four here plus "movable" from the sibling subtest
	})

	s.Run("transfer to current owner fails", func() {
		s.register("sticky")
		_, err := s.svc.Transfer(s.ctx, "sticky", callerA, callerA)
		var target *models.AlreadyOwnerError
		s.Require().ErrorAs(err, &target)
		s.Equal(callerA, target.Owner)
	})

	s.Run("transfer to null identity fails", func() {
		s.register("nowhere")
		_, err := s.svc.Transfer(s.ctx, "nowhere", domain.Zero, callerA)
		var target *models.InvalidTargetError
		s.Require().ErrorAs(err, &target)
	})

	s.Run("unknown name fails before owner validation", func() {
		_, err := s.svc.Transfer(s.ctx, "absent", domain.Zero, callerA)
		var target *models.NameNotFoundError
		s.Require().ErrorAs(err, &target)
	})

	s.Run("non-owner cannot transfer", func() {
		s.register("held")
		_, err := s.svc.Transfer(s.ctx, "held", callerC, callerB)
		var target *models.NotOwnerError
		s.Require().ErrorAs(err, &target)

		resolved, err := s.svc.Resolve(s.ctx, "held")
		s.Require().NoError(err)
		s.Equal(callerA, resolved.Owner)
	})
}

// TestLifecycleScenario walks the full register→update→update→transfer flow
// and checks the final state in one place.
func (s *ServiceSuite) TestLifecycleScenario() {
	_, err := s.svc.Register(s.ctx, "alice", "hash1", callerB, callerA)
	s.Require().NoError(err)
	registered, err := s.svc.Resolve(s.ctx, "alice")
	s.Require().NoError(err)

	_, err = s.svc.UpdateTarget(s.ctx, "alice", callerC, callerA)
	s.Require().NoError(err)
	_, err = s.svc.UpdateContentHash(s.ctx, "alice", "hash2", callerA)
	s.Require().NoError(err)
	_, err = s.svc.Transfer(s.ctx, "alice", callerD, callerA)
	s.Require().NoError(err)

	final, err := s.svc.Resolve(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(callerD, final.Owner)
	s.Equal(callerC, final.Target)
	s.Equal("hash2", final.ContentHash)
	s.True(final.RegisteredAt.Equal(registered.RegisteredAt), "registeredAt must never change")

	fromA, err := s.svc.NamesOwnedBy(s.ctx, callerA)
	s.Require().NoError(err)
	s.Empty(fromA)
	toD, err := s.svc.NamesOwnedBy(s.ctx, callerD)
	s.Require().NoError(err)
	s.Equal([]string{"alice"}, toD)
}

func (s *ServiceSuite) TestNotifications() {
	s.Run("register emits NameRegistered", func() {
		s.register("announced")
		evs := s.published.Events()
		s.Require().Len(evs, 1)
		s.Equal(events.KindNameRegistered, evs[0].Kind)
		s.Equal("announced", evs[0].Name)
		s.Equal(callerA, evs[0].Owner)
		s.Equal("hash-1", evs[0].ContentHash)
	})

	s.Run("both update paths emit NameUpdated with the post-update pair", func() {
		s.published.Reset()
		s.register("fanout")
		_, err := s.svc.UpdateTarget(s.ctx, "fanout", callerC, callerA)
		s.Require().NoError(err)
		_, err = s.svc.UpdateContentHash(s.ctx, "fanout", "hash-9", callerA)
		s.Require().NoError(err)

		evs := s.published.Events()
		s.Require().Len(evs, 3)

		afterTarget := evs[1]
		s.Equal(events.KindNameUpdated, afterTarget.Kind)
		s.Equal(callerC, afterTarget.Target)
		s.Equal("hash-1", afterTarget.ContentHash)

		afterHash := evs[2]
		s.Equal(events.KindNameUpdated, afterHash.Kind)
		s.Equal(callerC, afterHash.Target)
		s.Equal("hash-9", afterHash.ContentHash)
	})

	s.Run("transfer emits NameTransferred with both owners", func() {
		s.published.Reset()
		s.register("moving")
		_, err := s.svc.Transfer(s.ctx, "moving", callerB, callerA)
		s.Require().NoError(err)

		evs := s.published.Events()
		s.Require().Len(evs, 2)
		s.Equal(events.KindNameTransferred, evs[1].Kind)
		s.Equal(callerA, evs[1].OldOwner)
		s.Equal(callerB, evs[1].NewOwner)
	})

	s.Run("failures emit nothing", func() {
		s.published.Reset()
		_, err := s.svc.Register(s.ctx, "", "hash", callerB, callerA)
		s.Require().Error(err)
		_, err = s.svc.UpdateTarget(s.ctx, "no-such", callerB, callerA)
		s.Require().Error(err)
		s.Empty(s.published.Events())
	})
}

func (s *ServiceSuite) TestAdminIsInert() {
	s.Equal(domain.Identity("deployer-id"), s.svc.Admin())

	// The admin identity holds no capability: it cannot mutate records it
	// does not own.
	s.register("owned")
	_, err := s.svc.UpdateTarget(s.ctx, "owned", callerC, s.svc.Admin())
	var target *models.NotOwnerError
	s.Require().ErrorAs(err, &target)
}

func (s *ServiceSuite) TestNamesOwnedByUnknownIdentity() {
	names, err := s.svc.NamesOwnedBy(s.ctx, domain.Identity("stranger"))
	s.Require().NoError(err)
	s.Empty(names)
}

func countOf(names []string, name string) int {
	n := 0
	for _, candidate := range names {
		if candidate == name {
			n++
		}
	}
	return n
}
