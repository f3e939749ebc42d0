package territory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"plebis/pkg/platform/sentinel"
)

// MemoryCircleStore keeps circles in memory for tests and development.
type MemoryCircleStore struct {
	mu     sync.RWMutex
	byCode map[string]*VoteCircle
	byID   map[int64]*VoteCircle
	nextID int64
}

func NewMemoryCircleStore() *MemoryCircleStore {
	return &MemoryCircleStore{
		byCode: make(map[string]*VoteCircle),
		byID:   make(map[int64]*VoteCircle),
	}
}

func (s *MemoryCircleStore) Upsert(_ context.Context, c *VoteCircle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byCode[c.Code]; ok {
		c.ID = existing.ID
	} else {
		s.nextID++
		c.ID = s.nextID
	}
	stored := *c
	s.byCode[c.Code] = &stored
	s.byID[c.ID] = &stored
	return nil
}

func (s *MemoryCircleStore) Get(_ context.Context, code string) (*VoteCircle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byCode[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *MemoryCircleStore) GetByID(_ context.Context, id int64) (*VoteCircle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *MemoryCircleStore) Update(_ context.Context, c *VoteCircle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byCode, existing.Code)
	stored := *c
	s.byCode[c.Code] = &stored
	s.byID[c.ID] = &stored
	return nil
}

func (s *MemoryCircleStore) ForEachByPrefix(ctx context.Context, prefix string, unclassifiedOnly bool, fn func(*VoteCircle) error) error {
	for _, c := range s.snapshot() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !strings.HasPrefix(c.Code, prefix) {
			continue
		}
		if unclassifiedOnly && c.Classified() {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryCircleStore) ForEachWithoutPrefixes(ctx context.Context, prefixes []string, unclassifiedOnly bool, fn func(*VoteCircle) error) error {
	for _, c := range s.snapshot() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if hasAnyPrefix(c.Code, prefixes) {
			continue
		}
		if unclassifiedOnly && c.Classified() {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// snapshot copies the roster in code order so callbacks can update rows while
// iterating.
func (s *MemoryCircleStore) snapshot() []*VoteCircle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*VoteCircle, 0, len(s.byCode))
	for _, c := range s.byCode {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// MemoryOrderStore keeps orders in memory for tests.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[int64]*Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[int64]*Order)}
}

func (s *MemoryOrderStore) Put(o *Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *o
	s.orders[o.ID] = &stored
}

func (s *MemoryOrderStore) GetOrder(id int64) (*Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	out := *o
	return &out, true
}

func (s *MemoryOrderStore) ForEachPaidSince(_ context.Context, cutoff time.Time, fn func(*Order) error) error {
	s.mu.RLock()
	ordered := make([]*Order, 0, len(s.orders))
	for _, o := range s.orders {
		if o.PaidAt.After(cutoff) {
			copied := *o
			ordered = append(ordered, &copied)
		}
	}
	s.mu.RUnlock()

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, o := range ordered {
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryOrderStore) Update(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; !ok {
		return sentinel.ErrNotFound
	}
	stored := *o
	s.orders[o.ID] = &stored
	return nil
}
