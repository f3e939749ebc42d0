package territory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"plebis/pkg/platform/sentinel"
)

// PostgresCircleStore persists circles in PostgreSQL. The streaming methods
// iterate a cursor while callbacks write through separate pooled connections.
type PostgresCircleStore struct {
	db *sql.DB
}

func NewPostgresCircleStore(db *sql.DB) *PostgresCircleStore {
	return &PostgresCircleStore{db: db}
}

const circleColumns = `
	id, code, original_code, name, original_name, kind, town,
	island_code, province_code, autonomy_code, country_code,
	created_at, updated_at
`

func (s *PostgresCircleStore) Upsert(ctx context.Context, c *VoteCircle) error {
	if c == nil {
		return fmt.Errorf("vote circle is required")
	}
	query := `
		INSERT INTO vote_circles
			(code, original_code, name, original_name, kind, town,
			 island_code, province_code, autonomy_code, country_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (code) DO UPDATE SET
			original_code = EXCLUDED.original_code,
			name = EXCLUDED.name,
			original_name = EXCLUDED.original_name,
			kind = EXCLUDED.kind,
			town = EXCLUDED.town,
			island_code = EXCLUDED.island_code,
			province_code = EXCLUDED.province_code,
			autonomy_code = EXCLUDED.autonomy_code,
			country_code = EXCLUDED.country_code,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	now := time.Now()
	if !c.CreatedAt.IsZero() {
		now = c.CreatedAt
	}
	err := s.db.QueryRowContext(ctx, query,
		c.Code, c.OriginalCode, c.Name, c.OriginalName, int(c.Kind), c.Town,
		c.IslandCode, c.ProvinceCode, c.AutonomyCode, c.CountryCode, now,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("upsert vote circle: %w", err)
	}
	return nil
}

func (s *PostgresCircleStore) Get(ctx context.Context, code string) (*VoteCircle, error) {
	query := `SELECT ` + circleColumns + ` FROM vote_circles WHERE code = $1`
	c, err := scanCircle(s.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get vote circle: %w", err)
	}
	return c, nil
}

func (s *PostgresCircleStore) GetByID(ctx context.Context, id int64) (*VoteCircle, error) {
	query := `SELECT ` + circleColumns + ` FROM vote_circles WHERE id = $1`
	c, err := scanCircle(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get vote circle by id: %w", err)
	}
	return c, nil
}

func (s *PostgresCircleStore) Update(ctx context.Context, c *VoteCircle) error {
	query := `
		UPDATE vote_circles SET
			code = $2, original_code = $3, name = $4, original_name = $5,
			kind = $6, town = $7, island_code = $8, province_code = $9,
			autonomy_code = $10, country_code = $11, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		c.ID, c.Code, c.OriginalCode, c.Name, c.OriginalName, int(c.Kind), c.Town,
		c.IslandCode, c.ProvinceCode, c.AutonomyCode, c.CountryCode,
	)
	if err != nil {
		return fmt.Errorf("update vote circle: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vote circle rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresCircleStore) ForEachByPrefix(ctx context.Context, prefix string, unclassifiedOnly bool, fn func(*VoteCircle) error) error {
	query := `SELECT ` + circleColumns + ` FROM vote_circles WHERE code LIKE $1 || '%'`
	if unclassifiedOnly {
		query += ` AND country_code IS NULL AND autonomy_code IS NULL AND province_code IS NULL`
	}
	query += ` ORDER BY code`
	return s.forEach(ctx, fn, query, prefix)
}

func (s *PostgresCircleStore) ForEachWithoutPrefixes(ctx context.Context, prefixes []string, unclassifiedOnly bool, fn func(*VoteCircle) error) error {
	patterns := make([]string, len(prefixes))
	for i, p := range prefixes {
		patterns[i] = p + "%"
	}
	query := `SELECT ` + circleColumns + ` FROM vote_circles WHERE code NOT LIKE ALL($1)`
	if unclassifiedOnly {
		query += ` AND country_code IS NULL AND autonomy_code IS NULL AND province_code IS NULL`
	}
	query += ` ORDER BY code`
	return s.forEach(ctx, fn, query, pq.Array(patterns))
}

func (s *PostgresCircleStore) forEach(ctx context.Context, fn func(*VoteCircle) error, query string, args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("stream vote circles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCircle(rows)
		if err != nil {
			return fmt.Errorf("scan vote circle: %w", err)
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("stream vote circles: %w", err)
	}
	return nil
}

type circleRow interface {
	Scan(dest ...any) error
}

func scanCircle(row circleRow) (*VoteCircle, error) {
	var c VoteCircle
	var kind int
	var town sql.NullString
	err := row.Scan(
		&c.ID, &c.Code, &c.OriginalCode, &c.Name, &c.OriginalName, &kind, &town,
		&c.IslandCode, &c.ProvinceCode, &c.AutonomyCode, &c.CountryCode,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Kind = CircleKind(kind)
	c.Town = town.String
	return &c, nil
}

// PostgresOrderStore exposes membership orders for the consistency pass.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) ForEachPaidSince(ctx context.Context, cutoff time.Time, fn func(*Order) error) error {
	query := `
		SELECT id, user_id, vote_circle_id, payed_at,
		       town_code, island_code, autonomy_code,
		       vote_circle_town_code, vote_circle_island_code, vote_circle_autonomy_code,
		       updated_at
		FROM orders
		WHERE payed_at > $1
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return fmt.Errorf("stream orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID, &o.UserID, &o.VoteCircleID, &o.PaidAt,
			&o.TownCode, &o.IslandCode, &o.AutonomyCode,
			&o.VoteCircleTownCode, &o.VoteCircleIslandCode, &o.VoteCircleAutonomyCode,
			&o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("scan order: %w", err)
		}
		if err := fn(&o); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("stream orders: %w", err)
	}
	return nil
}

func (s *PostgresOrderStore) Update(ctx context.Context, o *Order) error {
	query := `
		UPDATE orders SET
			town_code = $2, island_code = $3, autonomy_code = $4,
			vote_circle_town_code = $5, vote_circle_island_code = $6,
			vote_circle_autonomy_code = $7, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		o.ID, o.TownCode, o.IslandCode, o.AutonomyCode,
		o.VoteCircleTownCode, o.VoteCircleIslandCode, o.VoteCircleAutonomyCode,
	)
	if err != nil {
		return fmt.Errorf("update order territory: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
