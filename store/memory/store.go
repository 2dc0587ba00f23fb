package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
)

// Store keeps pools and journal entries in process memory. Pools are
// cloned on the way in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	// Pool storage
	pools map[string]*pool.State

	// Journal storage
	entries []journal.Entry

	closed bool
}

func New() *Store {
	return &Store{
		pools:   make(map[string]*pool.State),
		entries: make([]journal.Entry, 0),
	}
}

// Pool Store implementation
func (s *Store) CreatePool(_ context.Context, p *pool.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rosca.ErrStoreClosed
	}
	if _, exists := s.pools[p.ID.String()]; exists {
		return rosca.ErrAlreadyExists
	}
	s.pools[p.ID.String()] = p.Clone()
	return nil
}

func (s *Store) GetPool(_ context.Context, poolID id.PoolID) (*pool.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.pools[poolID.String()]; ok {
		return p.Clone(), nil
	}
	return nil, rosca.ErrPoolNotFound
}

func (s *Store) SavePool(_ context.Context, p *pool.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rosca.ErrStoreClosed
	}
	if _, ok := s.pools[p.ID.String()]; !ok {
		return rosca.ErrPoolNotFound
	}
	s.pools[p.ID.String()] = p.Clone()
	return nil
}

func (s *Store) ListPools(_ context.Context, opts pool.ListOpts) ([]*pool.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*pool.State, 0, len(s.pools))
	for _, p := range s.pools {
		if opts.Operator.IsZero() || p.Config.Operator == opts.Operator {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []*pool.State{}, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	out := make([]*pool.State, len(result))
	for i, p := range result {
		out[i] = p.Clone()
	}
	return out, nil
}

func (s *Store) DeletePool(_ context.Context, poolID id.PoolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[poolID.String()]; !ok {
		return rosca.ErrPoolNotFound
	}
	delete(s.pools, poolID.String())
	return nil
}

// Journal Store implementation
func (s *Store) AppendJournal(_ context.Context, entries []*journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rosca.ErrStoreClosed
	}
	for _, e := range entries {
		cp := *e
		if e.Metadata != nil {
			cp.Metadata = make(map[string]string, len(e.Metadata))
			for k, v := range e.Metadata {
				cp.Metadata[k] = v
			}
		}
		s.entries = append(s.entries, cp)
	}
	return nil
}

func (s *Store) QueryJournal(_ context.Context, poolID id.PoolID, opts journal.QueryOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*journal.Entry, 0)
	for i := range s.entries {
		e := s.entries[i]
		if e.PoolID.String() != poolID.String() {
			continue
		}
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if (opts.Start.IsZero() || !e.Timestamp.Before(opts.Start)) &&
			(opts.End.IsZero() || e.Timestamp.Before(opts.End)) {
			result = append(result, &e)
		}
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []*journal.Entry{}, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (s *Store) PurgeJournal(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	kept := make([]journal.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Timestamp.Before(before) {
			count++
		} else {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return count, nil
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return rosca.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
