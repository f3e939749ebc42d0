package territory

import (
	"context"
	"time"
)

// CircleStore persists circles. The ForEach methods stream rows one at a time
// so the classifier never loads the full roster into memory.
type CircleStore interface {
	Upsert(ctx context.Context, c *VoteCircle) error
	Get(ctx context.Context, code string) (*VoteCircle, error)
	GetByID(ctx context.Context, id int64) (*VoteCircle, error)
	Update(ctx context.Context, c *VoteCircle) error

	// ForEachByPrefix streams circles whose code starts with prefix, in code
	// order. With unclassifiedOnly set, only rows with no derived geography
	// are visited.
	ForEachByPrefix(ctx context.Context, prefix string, unclassifiedOnly bool, fn func(*VoteCircle) error) error

	// ForEachWithoutPrefixes streams circles whose code starts with none of
	// the prefixes, in code order.
	ForEachWithoutPrefixes(ctx context.Context, prefixes []string, unclassifiedOnly bool, fn func(*VoteCircle) error) error
}

// OrderStore exposes the membership orders the consistency pass rewrites.
type OrderStore interface {
	// ForEachPaidSince streams orders paid strictly after cutoff.
	ForEachPaidSince(ctx context.Context, cutoff time.Time, fn func(*Order) error) error
	Update(ctx context.Context, o *Order) error
}
