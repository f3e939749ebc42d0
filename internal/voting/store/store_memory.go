package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"plebis/internal/voting/models"
	"plebis/pkg/platform/sentinel"
)

// MemoryStore keeps everything in maps guarded by a single RWMutex. It backs
// unit tests and local development and mirrors the PostgreSQL constraints,
// including the uniqueness rules on vote records.
type MemoryStore struct {
	mu        sync.RWMutex
	elections map[int64]*models.Election
	locations map[int64]map[string]*models.ElectionLocation
	votes     map[voteKey]*models.Vote
	profiles  map[int64]*models.User
	nextVote  int64
}

type voteKey struct {
	userID     int64
	electionID int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		elections: make(map[int64]*models.Election),
		locations: make(map[int64]map[string]*models.ElectionLocation),
		votes:     make(map[voteKey]*models.Vote),
		profiles:  make(map[int64]*models.User),
	}
}

// Votes returns the vote store view.
func (s *MemoryStore) Votes() VoteStore { return (*memoryVotes)(s) }

// Elections returns the election store view.
func (s *MemoryStore) Elections() ElectionStore { return (*memoryElections)(s) }

// Locations returns the location store view.
func (s *MemoryStore) Locations() LocationStore { return (*memoryLocations)(s) }

// Profiles returns the voter profile store view.
func (s *MemoryStore) Profiles() ProfileStore { return (*memoryProfiles)(s) }

type memoryVotes MemoryStore

func (s *memoryVotes) Create(_ context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteKey{userID: vote.UserID, electionID: vote.ElectionID}
	if _, ok := s.votes[key]; ok {
		return sentinel.ErrConflict
	}
	for k, v := range s.votes {
		if k.userID == vote.UserID && v.VoterID == vote.VoterID {
			return sentinel.ErrConflict
		}
	}

	s.nextVote++
	stored := *vote
	stored.ID = s.nextVote
	s.votes[key] = &stored
	vote.ID = stored.ID
	return nil
}

func (s *memoryVotes) Find(_ context.Context, userID, electionID int64) (*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vote, ok := s.votes[voteKey{userID: userID, electionID: electionID}]
	if !ok || vote.Retracted() {
		return nil, sentinel.ErrNotFound
	}
	out := *vote
	return &out, nil
}

func (s *memoryVotes) FindAny(_ context.Context, userID, electionID int64) (*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vote, ok := s.votes[voteKey{userID: userID, electionID: electionID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *vote
	return &out, nil
}

func (s *memoryVotes) Retract(_ context.Context, userID, electionID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vote, ok := s.votes[voteKey{userID: userID, electionID: electionID}]
	if !ok || vote.Retracted() {
		return sentinel.ErrNotFound
	}
	deletedAt := now
	vote.DeletedAt = &deletedAt
	vote.UpdatedAt = now
	return nil
}

func (s *memoryVotes) CountByAddress(_ context.Context, electionID, agoraID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for key, vote := range s.votes {
		if key.electionID == electionID && !vote.Retracted() && vote.AgoraID == agoraID {
			count++
		}
	}
	return count, nil
}

type memoryElections MemoryStore

func (s *memoryElections) Create(_ context.Context, e *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[e.ID]; ok {
		return sentinel.ErrConflict
	}
	stored := *e
	s.elections[e.ID] = &stored
	return nil
}

func (s *memoryElections) Update(_ context.Context, e *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	stored := *e
	s.elections[e.ID] = &stored
	return nil
}

func (s *memoryElections) Get(_ context.Context, id int64) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.elections[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *e
	return &out, nil
}

func (s *memoryElections) ListActive(_ context.Context, now time.Time) ([]*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*models.Election
	for _, e := range s.elections {
		if e.IsActive(now) {
			out := *e
			active = append(active, &out)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].ID < active[j].ID
	})
	return active, nil
}

type memoryLocations MemoryStore

func (s *memoryLocations) Upsert(_ context.Context, l *models.ElectionLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCode, ok := s.locations[l.ElectionID]
	if !ok {
		byCode = make(map[string]*models.ElectionLocation)
		s.locations[l.ElectionID] = byCode
	}
	l.ApplyVotingInfo()
	stored := *l
	byCode[l.Location] = &stored
	return nil
}

func (s *memoryLocations) Get(_ context.Context, electionID int64, location string) (*models.ElectionLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.locations[electionID][location]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *l
	return &out, nil
}

func (s *memoryLocations) ListByElection(_ context.Context, electionID int64) ([]*models.ElectionLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCode := s.locations[electionID]
	out := make([]*models.ElectionLocation, 0, len(byCode))
	for _, l := range byCode {
		copied := *l
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out, nil
}

func (s *memoryLocations) Delete(_ context.Context, electionID int64, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[electionID][location]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.locations[electionID], location)
	return nil
}

type memoryProfiles MemoryStore

func (s *memoryProfiles) Upsert(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *u
	s.profiles[u.ID] = &stored
	return nil
}

func (s *memoryProfiles) Get(_ context.Context, userID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *memoryProfiles) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[userID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.profiles, userID)
	return nil
}
