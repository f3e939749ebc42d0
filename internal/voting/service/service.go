// Package service orchestrates the voting flow: pseudonym derivation, ballot
// addressing, vote record lifecycle, and the signed handoff to the external
// booth. Handlers stay thin; stores stay pure I/O.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"plebis/internal/audit"
	"plebis/internal/voting/addressing"
	"plebis/internal/voting/booth"
	"plebis/internal/voting/identity"
	"plebis/internal/voting/metrics"
	"plebis/internal/voting/models"
	"plebis/internal/voting/store"
	dErrors "plebis/pkg/domain-errors"
	"plebis/pkg/platform/sentinel"
	"plebis/pkg/requestcontext"
)

// Delegation is the signed handoff returned to a voter.
type Delegation struct {
	Vote *models.Vote
	// Message is the canonical signed payload.
	Message string
	// Token is "{hmac}/{message}", consumed by frontends that assemble the
	// booth URL themselves.
	Token string
	// URL is the complete booth redirect.
	URL string
	// TestURL is the sandbox-only signature diagnostic, empty in production.
	TestURL string
}

type Service struct {
	votes     store.VoteStore
	elections store.ElectionStore
	locations store.LocationStore
	booth     *booth.Authorizer

	cache      *redis.Client
	counterTTL time.Duration
	recorder   *audit.Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithRecorder(r *audit.Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithCounterCache enables Redis-backed caching of the public vote counters.
func WithCounterCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = client
		s.counterTTL = ttl
	}
}

func New(votes store.VoteStore, elections store.ElectionStore, locations store.LocationStore, authorizer *booth.Authorizer, opts ...Option) (*Service, error) {
	if votes == nil || elections == nil || locations == nil {
		return nil, errors.New("vote, election, and location stores are required")
	}
	if authorizer == nil {
		return nil, errors.New("booth authorizer is required")
	}

	svc := &Service{
		votes:      votes,
		elections:  elections,
		locations:  locations,
		booth:      authorizer,
		counterTTL: time.Minute,
		logger:     slog.Default(),
		tracer:     otel.Tracer("plebis/voting"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Election loads an election or reports not found.
func (s *Service) Election(ctx context.Context, electionID int64) (*models.Election, error) {
	e, err := s.elections.Get(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	return e, nil
}

// ScopedElectionID resolves the numeric ballot address the user votes at: the
// current address of the location matching the user's territory.
func (s *Service) ScopedElectionID(ctx context.Context, e *models.Election, user *models.User) (int64, error) {
	locations, err := s.locations.ListByElection(ctx, e.ID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election locations")
	}
	location := addressing.LocationFor(e, user, locations)
	if location == nil {
		location = models.NewElectionLocation(e.ID)
	}
	addr, err := addressing.CurrentAddress(e, location)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute ballot address")
	}
	return addr, nil
}

// GetOrCreateVote returns the user's active vote record for the election,
// creating it on first participation. The voter id and address are fixed at
// creation and never recomputed for an existing record.
func (s *Service) GetOrCreateVote(ctx context.Context, user *models.User, electionID int64) (*models.Vote, error) {
	ctx, span := s.tracer.Start(ctx, "voting.GetOrCreateVote")
	defer span.End()

	e, err := s.Election(ctx, electionID)
	if err != nil {
		return nil, err
	}
	return s.getOrCreateVote(ctx, user, e, nil)
}

func (s *Service) getOrCreateVote(ctx context.Context, user *models.User, e *models.Election, paperAuthorityID *int64) (*models.Vote, error) {
	now := requestcontext.Now(ctx)

	if existing, err := s.votes.Find(ctx, user.ID, e.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up vote")
	}

	if !e.IsActive(now) {
		s.metrics.IncrementVoteErrors("closed")
		return nil, dErrors.New(dErrors.CodeForbidden, "voting is closed for this election")
	}
	if !e.HasValidUserCreatedAt(user) {
		s.metrics.IncrementVoteErrors("closed")
		return nil, dErrors.New(dErrors.CodeForbidden, "user registered after the census cutoff")
	}

	voterID, err := identity.DeriveVoterID(user, e)
	if err != nil {
		s.metrics.IncrementVoteErrors("identity")
		return nil, err
	}
	addr, err := s.ScopedElectionID(ctx, e, user)
	if err != nil {
		s.metrics.IncrementVoteErrors("store")
		return nil, err
	}

	vote := &models.Vote{
		UserID:           user.ID,
		ElectionID:       e.ID,
		VoterID:          voterID,
		AgoraID:          addr,
		PaperAuthorityID: paperAuthorityID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.votes.Create(ctx, vote); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race or the slot is held by a retracted vote. An active
			// record wins the race; a held slot is a real conflict.
			if existing, findErr := s.votes.Find(ctx, user.ID, e.ID); findErr == nil {
				return existing, nil
			}
			s.metrics.IncrementVoteErrors("conflict")
			return nil, dErrors.New(dErrors.CodeConflict, "vote record already exists")
		}
		s.metrics.IncrementVoteErrors("store")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create vote")
	}

	s.metrics.IncrementVotesCreated(e.ElectionType.String())
	action := audit.ActionVoteRegistered
	if paperAuthorityID != nil {
		action = audit.ActionPaperRegistered
	}
	s.record(ctx, audit.Event{
		Timestamp:  now,
		Action:     action,
		UserID:     user.ID,
		ElectionID: e.ID,
		VoterID:    vote.VoterID,
		Address:    vote.AgoraID,
	})
	s.logger.InfoContext(ctx, "vote registered",
		slog.Int64("election_id", e.ID),
		slog.Int64("address", vote.AgoraID),
		slog.Bool("paper", paperAuthorityID != nil),
	)
	return vote, nil
}

// RegisterPaperVote records a ballot cast on paper at a physical desk. The
// acting authority is kept on the record.
func (s *Service) RegisterPaperVote(ctx context.Context, authority *models.User, voter *models.User, electionID int64) (*models.Vote, error) {
	ctx, span := s.tracer.Start(ctx, "voting.RegisterPaperVote")
	defer span.End()

	if authority == nil || (!authority.PaperAuthority && !authority.Admin) {
		return nil, dErrors.New(dErrors.CodeForbidden, "paper authority required")
	}
	e, err := s.Election(ctx, electionID)
	if err != nil {
		return nil, err
	}
	authorityID := authority.ID
	return s.getOrCreateVote(ctx, voter, e, &authorityID)
}

// Authorize issues the signed booth delegation for the user, registering the
// vote record on first call. Subsequent calls re-sign with a fresh timestamp
// against the same voter id and address.
func (s *Service) Authorize(ctx context.Context, user *models.User, electionID int64) (*Delegation, error) {
	ctx, span := s.tracer.Start(ctx, "voting.Authorize")
	defer span.End()

	started := time.Now()
	e, err := s.Election(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if e.ElectionType != models.TypeNVotes {
		return nil, dErrors.New(dErrors.CodeBadRequest, "election does not vote on the booth")
	}

	vote, err := s.getOrCreateVote(ctx, user, e, nil)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	d := &Delegation{
		Vote:    vote,
		Message: booth.BuildMessage(vote.AgoraID, vote.VoterID, now.Unix()),
		Token:   s.booth.SignedToken(e, vote.AgoraID, vote.VoterID, now.Unix()),
		URL:     s.booth.DelegationURL(e, vote.AgoraID, vote.VoterID, now.Unix()),
		TestURL: s.booth.TestURL(e, vote.AgoraID, vote.VoterID, now.Unix()),
	}

	s.metrics.IncrementDelegationsIssued(e.Server)
	s.metrics.ObserveAuthorizeLatency(time.Since(started))
	s.record(ctx, audit.Event{
		Timestamp:  now,
		Action:     audit.ActionDelegationIssued,
		UserID:     user.ID,
		ElectionID: e.ID,
		VoterID:    vote.VoterID,
		Address:    vote.AgoraID,
	})
	return d, nil
}

// Retract soft-deletes the user's active vote. The participation slot stays
// taken; retraction is an audit-visible withdrawal, not an undo.
func (s *Service) Retract(ctx context.Context, user *models.User, electionID int64) error {
	ctx, span := s.tracer.Start(ctx, "voting.Retract")
	defer span.End()

	now := requestcontext.Now(ctx)
	if err := s.votes.Retract(ctx, user.ID, electionID, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no active vote to retract")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to retract vote")
	}

	s.metrics.IncrementVotesRetracted()
	s.record(ctx, audit.Event{
		Timestamp:  now,
		Action:     audit.ActionVoteRetracted,
		UserID:     user.ID,
		ElectionID: electionID,
	})
	s.logger.InfoContext(ctx, "vote retracted", slog.Int64("election_id", electionID))
	return nil
}

// HasAlreadyVoted reports whether the user ever held a vote record for the
// election, retracted or not.
func (s *Service) HasAlreadyVoted(ctx context.Context, userID, electionID int64) (bool, error) {
	_, err := s.votes.FindAny(ctx, userID, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up vote")
	}
	return true, nil
}

// ValidVotesCount counts active votes currently addressed at the location's
// live ballot. Votes stuck on a stale address after a version promotion are
// excluded until re-cast. Results are cached briefly; counters are public.
func (s *Service) ValidVotesCount(ctx context.Context, e *models.Election, l *models.ElectionLocation) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "voting.ValidVotesCount")
	defer span.End()

	addr, err := addressing.CurrentAddress(e, l)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute ballot address")
	}

	if s.cache == nil {
		s.metrics.IncrementCounterLookups("bypass")
		return s.countByAddress(ctx, e.ID, addr)
	}

	key := fmt.Sprintf("plebis:counter:%d:%d", e.ID, addr)
	if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
		if count, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			s.metrics.IncrementCounterLookups("hit")
			return count, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "counter cache read failed", slog.Any("error", err))
	}

	count, err := s.countByAddress(ctx, e.ID, addr)
	if err != nil {
		return 0, err
	}
	s.metrics.IncrementCounterLookups("miss")
	if err := s.cache.Set(ctx, key, strconv.FormatInt(count, 10), s.counterTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "counter cache write failed", slog.Any("error", err))
	}
	return count, nil
}

func (s *Service) countByAddress(ctx context.Context, electionID, addr int64) (int64, error) {
	count, err := s.votes.CountByAddress(ctx, electionID, addr)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count votes")
	}
	return count, nil
}

// Location loads one ballot location of the election.
func (s *Service) Location(ctx context.Context, electionID int64, location string) (*models.ElectionLocation, error) {
	l, err := s.locations.Get(ctx, electionID, location)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election location not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election location")
	}
	return l, nil
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.recorder == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	s.recorder.Record(ctx, event)
}
