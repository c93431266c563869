package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// EvictFunc is called for every session removed by EvictExpired.
type EvictFunc func(ctx context.Context, sess *domain.Session)

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	onEvict EvictFunc
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithEvictHook registers a callback for evicted sessions.
func WithEvictHook(fn EvictFunc) Option {
	return func(m *Manager) {
		m.onEvict = fn
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Tx gives access to one session while its lock is held.
type Tx struct {
	store ports.SessionStore
	id    string
}

// ID returns the locked session ID.
func (tx *Tx) ID() string { return tx.id }

// Get loads the session. Returns domain.ErrSessionNotFound if absent.
func (tx *Tx) Get(ctx context.Context) (*domain.Session, error) {
	return tx.store.Load(ctx, tx.id)
}

// Put persists sess, which must carry the locked ID.
func (tx *Tx) Put(ctx context.Context, sess *domain.Session) error {
	if sess.ID != tx.id {
		return fmt.Errorf("session %q saved under lock of %q", sess.ID, tx.id)
	}
	return tx.store.Save(ctx, sess)
}

// Delete removes the session.
func (tx *Tx) Delete(ctx context.Context) error {
	return tx.store.Delete(ctx, tx.id)
}

// WithLock executes fn while holding the lock for the session.
// Calls for the same ID run one at a time in lock acquisition order.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context, *Tx) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()
	return m.runLocked(ctx, sessionID, false, fn)
}

// TryWithLock is like WithLock but returns domain.ErrSessionBusy instead of
// waiting when the session is held.
func (m *Manager) TryWithLock(ctx context.Context, sessionID string, fn func(context.Context, *Tx) error) error {
	entry := m.acquire(sessionID)
	if !entry.mu.TryLock() {
		m.release(sessionID)
		return domain.ErrSessionBusy
	}
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()
	return m.runLocked(ctx, sessionID, true, fn)
}

func (m *Manager) runLocked(ctx context.Context, sessionID string, try bool, fn func(context.Context, *Tx) error) error {
	// Distributed Locking
	if m.locker != nil {
		var (
			unlock ports.UnlockFunc
			err    error
		)
		if try {
			unlock, err = m.locker.TryLock(ctx, sessionID, m.lockTTL)
		} else {
			unlock, err = m.locker.Lock(ctx, sessionID, m.lockTTL)
		}
		if err != nil {
			if errors.Is(err, domain.ErrSessionBusy) {
				return err
			}
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx, &Tx{store: m.store, id: sessionID})
}

// Get retrieves a session.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var sess *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context, tx *Tx) error {
		var err error
		sess, err = tx.Get(ctx)
		return err
	})
	return sess, err
}

// Create persists a new session, replacing any previous record with the same ID.
func (m *Manager) Create(ctx context.Context, sess *domain.Session) error {
	return m.WithLock(ctx, sess.ID, func(ctx context.Context, tx *Tx) error {
		if err := tx.Put(ctx, sess); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
}

// Put persists the session.
func (m *Manager) Put(ctx context.Context, sess *domain.Session) error {
	return m.WithLock(ctx, sess.ID, func(ctx context.Context, tx *Tx) error {
		return tx.Put(ctx, sess)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context, tx *Tx) error {
		return tx.Delete(ctx)
	})
}

// EvictExpired deletes every session past its deadline at now and returns how
// many were removed. Sessions with an event in flight are skipped and picked
// up by a later sweep.
func (m *Manager) EvictExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := m.store.Expired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	evicted := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return evicted, ctx.Err()
		}
		err := m.TryWithLock(ctx, id, func(ctx context.Context, tx *Tx) error {
			sess, err := tx.Get(ctx)
			if errors.Is(err, domain.ErrSessionNotFound) {
				// Backend expired the record on its own; drop any index leftovers.
				return tx.Delete(ctx)
			}
			if err != nil {
				return err
			}
			// Re-check: activity may have landed between listing and locking.
			if !sess.Expired(now) {
				return nil
			}
			if err := tx.Delete(ctx); err != nil {
				return err
			}
			evicted++
			if m.onEvict != nil {
				m.onEvict(ctx, sess)
			}
			return nil
		})
		switch {
		case errors.Is(err, domain.ErrSessionBusy):
			m.logger.Debug("eviction skipped, session busy", "session_id", id)
		case err != nil:
			m.logger.Warn("eviction failed", "session_id", id, "err", err)
		}
	}
	return evicted, nil
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}
