package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"plebis/internal/voting/models"
	"plebis/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// PostgresStore persists the voting model in PostgreSQL. Vote uniqueness is
// enforced by database constraints on (user_id, election_id) and
// (user_id, voter_id); concurrent duplicate inserts surface as
// sentinel.ErrConflict with exactly one winner.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Votes returns the vote store view.
func (s *PostgresStore) Votes() VoteStore { return (*postgresVotes)(s) }

// Elections returns the election store view.
func (s *PostgresStore) Elections() ElectionStore { return (*postgresElections)(s) }

// Locations returns the location store view.
func (s *PostgresStore) Locations() LocationStore { return (*postgresLocations)(s) }

// Profiles returns the voter profile store view.
func (s *PostgresStore) Profiles() ProfileStore { return (*postgresProfiles)(s) }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type postgresVotes PostgresStore

func (s *postgresVotes) Create(ctx context.Context, vote *models.Vote) error {
	if vote == nil {
		return fmt.Errorf("vote is required")
	}
	query := `
		INSERT INTO votes (user_id, election_id, voter_id, agora_id, paper_authority_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		vote.UserID,
		vote.ElectionID,
		vote.VoterID,
		vote.AgoraID,
		vote.PaperAuthorityID,
		vote.CreatedAt,
	).Scan(&vote.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create vote: %w", err)
	}
	return nil
}

func (s *postgresVotes) Find(ctx context.Context, userID, electionID int64) (*models.Vote, error) {
	query := `
		SELECT id, user_id, election_id, voter_id, agora_id, paper_authority_id, created_at, updated_at, deleted_at
		FROM votes
		WHERE user_id = $1 AND election_id = $2 AND deleted_at IS NULL
	`
	vote, err := scanVote(s.db.QueryRowContext(ctx, query, userID, electionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return vote, nil
}

func (s *postgresVotes) FindAny(ctx context.Context, userID, electionID int64) (*models.Vote, error) {
	query := `
		SELECT id, user_id, election_id, voter_id, agora_id, paper_authority_id, created_at, updated_at, deleted_at
		FROM votes
		WHERE user_id = $1 AND election_id = $2
	`
	vote, err := scanVote(s.db.QueryRowContext(ctx, query, userID, electionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find vote including retracted: %w", err)
	}
	return vote, nil
}

func (s *postgresVotes) Retract(ctx context.Context, userID, electionID int64, now time.Time) error {
	query := `
		UPDATE votes
		SET deleted_at = $3, updated_at = $3
		WHERE user_id = $1 AND election_id = $2 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, userID, electionID, now)
	if err != nil {
		return fmt.Errorf("retract vote: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("retract vote rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *postgresVotes) CountByAddress(ctx context.Context, electionID, agoraID int64) (int64, error) {
	var count int64
	query := `
		SELECT COUNT(*)
		FROM votes
		WHERE election_id = $1 AND agora_id = $2 AND deleted_at IS NULL
	`
	if err := s.db.QueryRowContext(ctx, query, electionID, agoraID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count votes by address: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVote(row rowScanner) (*models.Vote, error) {
	var vote models.Vote
	var paperAuthorityID sql.NullInt64
	var deletedAt sql.NullTime
	err := row.Scan(
		&vote.ID,
		&vote.UserID,
		&vote.ElectionID,
		&vote.VoterID,
		&vote.AgoraID,
		&paperAuthorityID,
		&vote.CreatedAt,
		&vote.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if paperAuthorityID.Valid {
		vote.PaperAuthorityID = &paperAuthorityID.Int64
	}
	if deletedAt.Valid {
		vote.DeletedAt = &deletedAt.Time
	}
	return &vote, nil
}

type postgresElections PostgresStore

const electionColumns = `
	id, title, agora_election_id, starts_at, ends_at, close_message, scope,
	info_url, server, user_created_at_max, priority, counter_key,
	external_link, voter_id_template, election_type,
	requires_sms_check, show_on_index, ignore_multiple_territories, requires_vatid_check,
	created_at, updated_at
`

func (s *postgresElections) Create(ctx context.Context, e *models.Election) error {
	if e == nil {
		return fmt.Errorf("election is required")
	}
	query := `
		INSERT INTO elections (` + electionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := s.db.ExecContext(ctx, query, electionArgs(e)...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create election: %w", err)
	}
	return nil
}

func (s *postgresElections) Update(ctx context.Context, e *models.Election) error {
	if e == nil {
		return fmt.Errorf("election is required")
	}
	query := `
		UPDATE elections SET
			title = $2, agora_election_id = $3, starts_at = $4, ends_at = $5,
			close_message = $6, scope = $7, info_url = $8, server = $9,
			user_created_at_max = $10, priority = $11, counter_key = $12,
			external_link = $13, voter_id_template = $14, election_type = $15,
			requires_sms_check = $16, show_on_index = $17,
			ignore_multiple_territories = $18, requires_vatid_check = $19,
			created_at = $20, updated_at = $21
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, electionArgs(e)...)
	if err != nil {
		return fmt.Errorf("update election: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update election rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *postgresElections) Get(ctx context.Context, id int64) (*models.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`
	e, err := scanElection(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get election: %w", err)
	}
	return e, nil
}

func (s *postgresElections) ListActive(ctx context.Context, now time.Time) ([]*models.Election, error) {
	query := `
		SELECT ` + electionColumns + `
		FROM elections
		WHERE starts_at <= $1 AND ends_at > $1
		ORDER BY priority, id
	`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list active elections: %w", err)
	}
	defer rows.Close()

	var elections []*models.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan active election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active elections: %w", err)
	}
	return elections, nil
}

func electionArgs(e *models.Election) []any {
	return []any{
		e.ID,
		e.Title,
		e.AgoraElectionID,
		e.StartsAt,
		e.EndsAt,
		e.CloseMessage,
		e.Scope,
		e.InfoURL,
		e.Server,
		e.UserCreatedAtMax,
		e.Priority,
		e.CounterKey,
		e.ExternalLink,
		e.VoterIDTemplate,
		int(e.ElectionType),
		e.RequiresSMSCheck,
		e.ShowOnIndex,
		e.IgnoreMultipleTerritories,
		e.RequiresVatIDCheck,
		e.CreatedAt,
		e.UpdatedAt,
	}
}

func scanElection(row rowScanner) (*models.Election, error) {
	var e models.Election
	var userCreatedAtMax sql.NullTime
	var electionType int
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.AgoraElectionID,
		&e.StartsAt,
		&e.EndsAt,
		&e.CloseMessage,
		&e.Scope,
		&e.InfoURL,
		&e.Server,
		&userCreatedAtMax,
		&e.Priority,
		&e.CounterKey,
		&e.ExternalLink,
		&e.VoterIDTemplate,
		&electionType,
		&e.RequiresSMSCheck,
		&e.ShowOnIndex,
		&e.IgnoreMultipleTerritories,
		&e.RequiresVatIDCheck,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userCreatedAtMax.Valid {
		e.UserCreatedAtMax = &userCreatedAtMax.Time
	}
	e.ElectionType = models.ElectionType(electionType)
	return &e, nil
}

type postgresLocations PostgresStore

const locationColumns = `
	id, election_id, location, override, agora_version, new_agora_version,
	has_voting_info, title, description, layout, theme, share_text, questions
`

func (s *postgresLocations) Upsert(ctx context.Context, l *models.ElectionLocation) error {
	if l == nil {
		return fmt.Errorf("election location is required")
	}
	l.ApplyVotingInfo()
	questions, err := json.Marshal(l.Questions)
	if err != nil {
		return fmt.Errorf("marshal location questions: %w", err)
	}
	query := `
		INSERT INTO election_locations
			(election_id, location, override, agora_version, new_agora_version,
			 has_voting_info, title, description, layout, theme, share_text, questions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (election_id, location) DO UPDATE SET
			override = EXCLUDED.override,
			agora_version = EXCLUDED.agora_version,
			new_agora_version = EXCLUDED.new_agora_version,
			has_voting_info = EXCLUDED.has_voting_info,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			layout = EXCLUDED.layout,
			theme = EXCLUDED.theme,
			share_text = EXCLUDED.share_text,
			questions = EXCLUDED.questions
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		l.ElectionID,
		l.Location,
		l.Override,
		l.AgoraVersion,
		l.NewAgoraVersion,
		l.HasVotingInfo,
		l.Title,
		l.Description,
		l.Layout,
		l.Theme,
		l.ShareText,
		questions,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("upsert election location: %w", err)
	}
	return nil
}

func (s *postgresLocations) Get(ctx context.Context, electionID int64, location string) (*models.ElectionLocation, error) {
	query := `SELECT ` + locationColumns + ` FROM election_locations WHERE election_id = $1 AND location = $2`
	l, err := scanLocation(s.db.QueryRowContext(ctx, query, electionID, location))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get election location: %w", err)
	}
	return l, nil
}

func (s *postgresLocations) ListByElection(ctx context.Context, electionID int64) ([]*models.ElectionLocation, error) {
	query := `SELECT ` + locationColumns + ` FROM election_locations WHERE election_id = $1 ORDER BY location`
	rows, err := s.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("list election locations: %w", err)
	}
	defer rows.Close()

	var locations []*models.ElectionLocation
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan election location: %w", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list election locations: %w", err)
	}
	return locations, nil
}

func (s *postgresLocations) Delete(ctx context.Context, electionID int64, location string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM election_locations WHERE election_id = $1 AND location = $2`, electionID, location)
	if err != nil {
		return fmt.Errorf("delete election location: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete election location rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type postgresProfiles PostgresStore

const profileColumns = `
	user_id, document_type, document_vat_id, registered_at,
	country, autonomy_code, province_code, town, island_code, vote_circle_code,
	admin, paper_authority
`

func (s *postgresProfiles) Upsert(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("voter profile is required")
	}
	query := `
		INSERT INTO voter_profiles (` + profileColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			document_type = EXCLUDED.document_type,
			document_vat_id = EXCLUDED.document_vat_id,
			registered_at = EXCLUDED.registered_at,
			country = EXCLUDED.country,
			autonomy_code = EXCLUDED.autonomy_code,
			province_code = EXCLUDED.province_code,
			town = EXCLUDED.town,
			island_code = EXCLUDED.island_code,
			vote_circle_code = EXCLUDED.vote_circle_code,
			admin = EXCLUDED.admin,
			paper_authority = EXCLUDED.paper_authority,
			updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID,
		u.DocumentType,
		u.DocumentVatID,
		u.CreatedAt,
		u.Country,
		u.AutonomyCode,
		u.ProvinceCode,
		u.Town,
		u.IslandCode,
		u.VoteCircleCode,
		u.Admin,
		u.PaperAuthority,
	)
	if err != nil {
		return fmt.Errorf("upsert voter profile: %w", err)
	}
	return nil
}

func (s *postgresProfiles) Get(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + profileColumns + ` FROM voter_profiles WHERE user_id = $1`
	var u models.User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID,
		&u.DocumentType,
		&u.DocumentVatID,
		&u.CreatedAt,
		&u.Country,
		&u.AutonomyCode,
		&u.ProvinceCode,
		&u.Town,
		&u.IslandCode,
		&u.VoteCircleCode,
		&u.Admin,
		&u.PaperAuthority,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get voter profile: %w", err)
	}
	return &u, nil
}

func (s *postgresProfiles) Delete(ctx context.Context, userID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM voter_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete voter profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete voter profile rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanLocation(row rowScanner) (*models.ElectionLocation, error) {
	var l models.ElectionLocation
	var questions []byte
	err := row.Scan(
		&l.ID,
		&l.ElectionID,
		&l.Location,
		&l.Override,
		&l.AgoraVersion,
		&l.NewAgoraVersion,
		&l.HasVotingInfo,
		&l.Title,
		&l.Description,
		&l.Layout,
		&l.Theme,
		&l.ShareText,
		&questions,
	)
	if err != nil {
		return nil, err
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &l.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal location questions: %w", err)
		}
	}
	return &l, nil
}
