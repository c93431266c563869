package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
)

// DefaultShards is the number of independently locked partitions.
const DefaultShards = 32

type shard struct {
	mu   sync.RWMutex
	data map[string]*domain.Session
}

// Store implements ports.SessionStore in memory.
// Sessions are spread over shards so that unrelated sessions rarely share a lock.
// Safe for concurrent use.
type Store struct {
	shards []*shard
}

var _ ports.SessionStore = (*Store)(nil)

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return NewShardedStore(DefaultShards)
}

// NewShardedStore creates a store with n shards (at least one).
func NewShardedStore(n int) *Store {
	if n < 1 {
		n = 1
	}
	s := &Store{shards: make([]*shard, n)}
	for i := range s.shards {
		s.shards[i] = &shard{data: make(map[string]*domain.Session)}
	}
	return s
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Save persists a copy of the session.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	// Deep copy to ensure isolation, similar to serialization
	c := sess.Clone()
	sh := s.shardFor(sess.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.data[sess.ID] = c
	return nil
}

// Load retrieves a copy of the session so callers can't mutate the store by pointer.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	sh := s.shardFor(sessionID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.data, sessionID)
	return nil
}

// Expired scans every shard for sessions past their deadline.
func (s *Store) Expired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	for _, sh := range s.shards {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		sh.mu.RLock()
		for id, sess := range sh.data {
			if sess.Expired(now) {
				ids = append(ids, id)
			}
		}
		sh.mu.RUnlock()
	}
	return ids, nil
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.data)
		sh.mu.RUnlock()
	}
	return n
}
