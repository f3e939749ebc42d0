package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"plebis/internal/audit"
	"plebis/internal/platform/config"
	"plebis/internal/voting/booth"
	"plebis/internal/voting/models"
	"plebis/internal/voting/store"
	dErrors "plebis/pkg/domain-errors"
	"plebis/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store    *store.MemoryStore
	recorder *audit.Recorder
	svc      *Service
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	logger := slog.New(slog.DiscardHandler)
	s.recorder = audit.NewRecorder(64, logger)

	servers := config.BoothServers{
		Default: "default",
		Profiles: map[string]config.BoothProfile{
			"default": {URL: "https://booth.example.org/", SharedKey: "shared"},
		},
	}

	svc, err := New(
		s.store.Votes(), s.store.Elections(), s.store.Locations(),
		booth.New(servers, false),
		WithLogger(logger),
		WithRecorder(s.recorder),
	)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) seedElection(mutate ...func(*models.Election)) *models.Election {
	e := &models.Election{
		ID:              10,
		Title:           "Primarias",
		AgoraElectionID: 100,
		StartsAt:        s.now.Add(-time.Hour),
		EndsAt:          s.now.Add(time.Hour),
		CounterKey:      "counter-key",
		ElectionType:    models.TypeNVotes,
	}
	for _, m := range mutate {
		m(e)
	}
	s.Require().NoError(s.store.Elections().Create(context.Background(), e))

	l := models.NewElectionLocation(e.ID)
	l.AgoraVersion = 2
	l.NewAgoraVersion = 2
	s.Require().NoError(s.store.Locations().Upsert(context.Background(), l))
	return e
}

func (s *ServiceSuite) user() *models.User {
	return &models.User{ID: 42, CreatedAt: s.now.Add(-24 * time.Hour)}
}

func (s *ServiceSuite) drainAudit() []audit.Event {
	var events []audit.Event
	for {
		select {
		case e := <-s.recorder.Inbox():
			events = append(events, e)
		default:
			return events
		}
	}
}

func (s *ServiceSuite) TestGetOrCreateVote() {
	s.seedElection()

	s.Run("first call creates the record", func() {
		vote, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 10)
		s.Require().NoError(err)
		s.Len(vote.VoterID, 64)
		s.Equal(int64(100002), vote.AgoraID)
		s.Nil(vote.PaperAuthorityID)

		events := s.drainAudit()
		s.Require().Len(events, 1)
		s.Equal(audit.ActionVoteRegistered, events[0].Action)
		s.Equal(vote.VoterID, events[0].VoterID)
	})

	s.Run("second call returns the same record", func() {
		first, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 10)
		s.Require().NoError(err)
		again, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 10)
		s.Require().NoError(err)
		s.Equal(first.ID, again.ID)
		s.Equal(first.VoterID, again.VoterID)
		s.Empty(s.drainAudit())
	})

	s.Run("unknown election is not found", func() {
		_, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 99)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestGetOrCreateVoteGuards() {
	s.Run("closed election is forbidden", func() {
		s.seedElection(func(e *models.Election) {
			e.StartsAt = s.now.Add(-3 * time.Hour)
			e.EndsAt = s.now.Add(-2 * time.Hour)
		})
		_, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 10)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("existing vote survives election close", func() {
		s.SetupTest()
		e := s.seedElection()
		vote, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 10)
		s.Require().NoError(err)

		e.EndsAt = s.now.Add(-time.Minute)
		s.Require().NoError(s.store.Elections().Update(context.Background(), e))

		again, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 10)
		s.Require().NoError(err)
		s.Equal(vote.ID, again.ID)
	})

	s.Run("census cutoff is enforced", func() {
		s.SetupTest()
		s.seedElection(func(e *models.Election) {
			cutoff := s.now.Add(-48 * time.Hour)
			e.UserCreatedAtMax = &cutoff
		})
		_, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 10)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("missing user cannot derive a voter id", func() {
		s.SetupTest()
		s.seedElection()
		_, err := s.svc.GetOrCreateVote(s.ctx(), nil, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(err.Error(), "could not generate voter id")
	})
}

func (s *ServiceSuite) TestAuthorize() {
	s.Run("issues a signed delegation", func() {
		s.seedElection()
		d, err := s.svc.Authorize(s.ctx(), s.user(), 10)
		s.Require().NoError(err)

		wantMessage := fmt.Sprintf("AuthEvent:vote:%d:%s:%d", d.Vote.AgoraID, d.Vote.VoterID, s.now.Unix())
		s.Equal(wantMessage, d.Message)
		s.Equal(booth.Sign(wantMessage, "shared")+"/"+wantMessage, d.Token)
		s.Equal("https://booth.example.org/booth/"+booth.Sign(wantMessage, "shared")+"/vote/"+wantMessage, d.URL)
		s.Empty(d.TestURL)

		events := s.drainAudit()
		s.Require().Len(events, 2)
		s.Equal(audit.ActionVoteRegistered, events[0].Action)
		s.Equal(audit.ActionDelegationIssued, events[1].Action)
	})

	s.Run("re-signs with a fresh timestamp for the same voter id", func() {
		s.SetupTest()
		s.seedElection()
		first, err := s.svc.Authorize(s.ctx(), s.user(), 10)
		s.Require().NoError(err)

		later := requestcontext.WithTime(context.Background(), s.now.Add(5*time.Minute))
		second, err := s.svc.Authorize(later, s.user(), 10)
		s.Require().NoError(err)

		s.Equal(first.Vote.VoterID, second.Vote.VoterID)
		s.NotEqual(first.Message, second.Message)
	})

	s.Run("external elections do not delegate", func() {
		s.SetupTest()
		s.seedElection(func(e *models.Election) {
			e.ElectionType = models.TypeExternal
		})
		_, err := s.svc.Authorize(s.ctx(), s.user(), 10)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestRetract() {
	s.seedElection()

	s.Run("retracting without a vote is not found", func() {
		s.True(dErrors.HasCode(s.svc.Retract(s.ctx(), s.user(), 10), dErrors.CodeNotFound))
	})

	s.Run("retract hides the vote but keeps the participation trace", func() {
		_, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 10)
		s.Require().NoError(err)
		s.drainAudit()

		s.Require().NoError(s.svc.Retract(s.ctx(), s.user(), 10))

		voted, err := s.svc.HasAlreadyVoted(s.ctx(), 42, 10)
		s.Require().NoError(err)
		s.True(voted)

		events := s.drainAudit()
		s.Require().Len(events, 1)
		s.Equal(audit.ActionVoteRetracted, events[0].Action)
	})

	s.Run("a retracted slot cannot be re-registered", func() {
		_, err := s.svc.GetOrCreateVote(s.ctx(), s.user(), 10)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestRegisterPaperVote() {
	s.seedElection()
	authority := &models.User{ID: 7, PaperAuthority: true, CreatedAt: s.now.Add(-24 * time.Hour)}

	s.Run("records the acting authority", func() {
		vote, err := s.svc.RegisterPaperVote(s.ctx(), authority, s.user(), 10)
		s.Require().NoError(err)
		s.Require().NotNil(vote.PaperAuthorityID)
		s.Equal(int64(7), *vote.PaperAuthorityID)

		events := s.drainAudit()
		s.Require().Len(events, 1)
		s.Equal(audit.ActionPaperRegistered, events[0].Action)
	})

	s.Run("plain users cannot act as authority", func() {
		_, err := s.svc.RegisterPaperVote(s.ctx(), s.user(), &models.User{ID: 43, CreatedAt: s.now.Add(-24 * time.Hour)}, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestValidVotesCount() {
	e := s.seedElection()

	location, err := s.store.Locations().Get(context.Background(), 10, "00")
	s.Require().NoError(err)

	for i := int64(1); i <= 3; i++ {
		u := &models.User{ID: i, CreatedAt: s.now.Add(-24 * time.Hour)}
		_, err := s.svc.GetOrCreateVote(s.ctx(), u, 10)
		s.Require().NoError(err)
	}

	s.Run("counts votes at the live address", func() {
		count, err := s.svc.ValidVotesCount(s.ctx(), e, location)
		s.Require().NoError(err)
		s.Equal(int64(3), count)
	})

	s.Run("votes on a stale address are excluded after promotion", func() {
		location.AgoraVersion = 3
		location.NewAgoraVersion = 3
		s.Require().NoError(s.store.Locations().Upsert(context.Background(), location))

		count, err := s.svc.ValidVotesCount(s.ctx(), e, location)
		s.Require().NoError(err)
		s.Zero(count)
	})

	s.Run("retracted votes are excluded", func() {
		location.AgoraVersion = 2
		location.NewAgoraVersion = 2
		s.Require().NoError(s.store.Locations().Upsert(context.Background(), location))
		s.Require().NoError(s.svc.Retract(s.ctx(), &models.User{ID: 2}, 10))

		count, err := s.svc.ValidVotesCount(s.ctx(), e, location)
		s.Require().NoError(err)
		s.Equal(int64(2), count)
	})
}

func (s *ServiceSuite) TestScopedElectionID() {
	s.Run("falls back to the election-wide ballot", func() {
		e := s.seedElection()
		addr, err := s.svc.ScopedElectionID(s.ctx(), e, s.user())
		s.Require().NoError(err)
		s.Equal(int64(100002), addr)
	})

	s.Run("matches the user's territory on scoped elections", func() {
		s.SetupTest()
		e := s.seedElection(func(e *models.Election) {
			e.Scope = models.ScopeMunicipal
		})
		town := &models.ElectionLocation{ElectionID: 10, Location: "280796", AgoraVersion: 1, NewAgoraVersion: 1}
		s.Require().NoError(s.store.Locations().Upsert(context.Background(), town))

		u := s.user()
		u.Town = "280796"
		addr, err := s.svc.ScopedElectionID(s.ctx(), e, u)
		s.Require().NoError(err)
		s.Equal(int64(1002807961), addr)
	})
}
