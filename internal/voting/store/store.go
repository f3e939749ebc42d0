// Package store persists elections, per-territory ballot locations, and vote
// records. Two implementations are provided: an in-memory store for tests and
// development, and a PostgreSQL store for production. All domain logic
// (identity derivation, addressing, delegation) belongs in the service layer;
// stores are pure I/O.
package store

import (
	"context"
	"time"

	"plebis/internal/voting/models"
)

// VoteStore persists vote records. Retraction is a soft delete so the
// participation trace survives for audit; a retracted record still blocks
// re-registration of the same (user, election) pair at the database level.
type VoteStore interface {
	// Create inserts a new vote record. Returns sentinel.ErrConflict when the
	// user already holds a record for the election or the voter id is taken.
	Create(ctx context.Context, vote *models.Vote) error

	// Find returns the active (non-retracted) vote for the pair, or
	// sentinel.ErrNotFound.
	Find(ctx context.Context, userID, electionID int64) (*models.Vote, error)

	// FindAny returns the vote for the pair regardless of retraction, or
	// sentinel.ErrNotFound.
	FindAny(ctx context.Context, userID, electionID int64) (*models.Vote, error)

	// Retract soft-deletes the active vote for the pair at the given time.
	// Returns sentinel.ErrNotFound when no active vote exists.
	Retract(ctx context.Context, userID, electionID int64, now time.Time) error

	// CountByAddress counts active votes for the election whose ballot
	// address equals agoraID.
	CountByAddress(ctx context.Context, electionID, agoraID int64) (int64, error)
}

// ElectionStore persists election definitions.
type ElectionStore interface {
	Create(ctx context.Context, e *models.Election) error
	Update(ctx context.Context, e *models.Election) error
	Get(ctx context.Context, id int64) (*models.Election, error)
	// ListActive returns elections whose voting window contains now,
	// ordered by priority then id.
	ListActive(ctx context.Context, now time.Time) ([]*models.Election, error)
}

// ProfileStore persists the voter profile snapshot synced from the account
// system. The snapshot carries exactly the attributes the voting core reads:
// identity document, registration time, territory codes, and roles.
type ProfileStore interface {
	// Upsert inserts or replaces the profile keyed by user id.
	Upsert(ctx context.Context, u *models.User) error

	// Get returns the profile for the user, or sentinel.ErrNotFound.
	Get(ctx context.Context, userID int64) (*models.User, error)

	Delete(ctx context.Context, userID int64) error
}

// LocationStore persists the per-territory ballot locations of an election.
type LocationStore interface {
	// Upsert inserts or replaces the location row keyed by
	// (election_id, location).
	Upsert(ctx context.Context, l *models.ElectionLocation) error
	Get(ctx context.Context, electionID int64, location string) (*models.ElectionLocation, error)
	// ListByElection returns all locations of the election ordered by code.
	ListByElection(ctx context.Context, electionID int64) ([]*models.ElectionLocation, error)
	Delete(ctx context.Context, electionID int64, location string) error
}
