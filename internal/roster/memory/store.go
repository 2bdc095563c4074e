package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pokernight/internal/roster"
)

const maxSweepInterval = time.Minute

type session struct {
	tables    map[int]*roster.Table
	expiresAt time.Time
}

// Store is an in-memory roster store. A session's tables expire ttl after
// its last save; a zero ttl keeps them until deleted or the process exits.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func New(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

var _ roster.Store = (*Store)(nil)

func (s *Store) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && !now.Before(sess.expiresAt)
}

// live returns the session's entry, or nil when it is missing or expired.
// Callers hold at least the read lock.
func (s *Store) live(sessionID string) *session {
	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess, s.now()) {
		return nil
	}
	return sess
}

// sweep drops every expired session. Called with the write lock held.
func (s *Store) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl
	if interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	if now.Sub(s.lastSweep) < interval {
		return
	}
	s.lastSweep = now
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
		}
	}
}

func (s *Store) LoadTable(ctx context.Context, sessionID string, number int) (*roster.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.live(sessionID)
	if sess == nil {
		return nil, roster.ErrTableNotFound
	}
	table, ok := sess.tables[number]
	if !ok {
		return nil, roster.ErrTableNotFound
	}
	return table.Clone(), nil
}

func (s *Store) SaveTable(ctx context.Context, sessionID string, table *roster.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)

	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess, now) {
		sess = &session{tables: make(map[int]*roster.Table)}
		s.sessions[sessionID] = sess
	}
	sess.tables[table.Number] = table.Clone()
	sess.expiresAt = now.Add(s.ttl)
	return nil
}

func (s *Store) DeleteTable(ctx context.Context, sessionID string, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(sess.tables, number)
	if len(sess.tables) == 0 || s.expired(sess, s.now()) {
		delete(s.sessions, sessionID)
	}
	return nil
}

func (s *Store) TableNumbers(ctx context.Context, sessionID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.live(sessionID)
	if sess == nil {
		return []int{}, nil
	}
	numbers := make([]int, 0, len(sess.tables))
	for n := range sess.tables {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

