// Package store keeps conversation sessions and the bounded ping history in
// memory behind a single lock, and persists them to a JSON snapshot on demand.
package store

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/unilinkup/core/logger"
	"github.com/m3rciful/unilinkup/internal/meetup"
)

// DefaultMaxPingHistory bounds the ping history when Options leaves it unset.
const DefaultMaxPingHistory = 100

// Options configure a Store.
type Options struct {
	MaxPingHistory int
	// Now overrides the clock; tests use it to drive eviction.
	Now func() time.Time
}

// Stats is a point-in-time view of store occupancy.
type Stats struct {
	Sessions       int `json:"active_sessions"`
	Pings          int `json:"total_pings"`
	MaxPingHistory int `json:"max_ping_history"`
}

// Store holds sessions keyed by user id and pings in insertion order,
// oldest first. Every method is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*meetup.Session
	pings    []meetup.Ping
	maxPings int
	now      func() time.Time
}

// New constructs an empty store.
func New(opts Options) *Store {
	if opts.MaxPingHistory <= 0 {
		opts.MaxPingHistory = DefaultMaxPingHistory
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		sessions: make(map[int64]*meetup.Session),
		maxPings: opts.MaxPingHistory,
		now:      opts.Now,
	}
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

// GetOrCreateSession returns the user's session, creating it when absent.
// An existing session has its activity refreshed and its display name
// updated when a different non-empty name is supplied.
func (s *Store) GetOrCreateSession(userID int64, displayName string) meetup.Session {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		if displayName != "" && displayName != sess.DisplayName {
			sess.DisplayName = displayName
		}
		sess.Touch(now)
		return sess.Clone()
	}
	sess := meetup.NewSession(userID, displayName, now)
	s.sessions[userID] = &sess
	logger.Debug(context.Background(), "store", "session.created", slog.Int64("user_id", userID))
	return sess.Clone()
}

// Session returns a copy of the user's session without side effects.
func (s *Store) Session(userID int64) (meetup.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return meetup.Session{}, false
	}
	return sess.Clone(), true
}

// SaveSession upserts sess and refreshes its activity timestamp.
func (s *Store) SaveSession(sess meetup.Session) {
	now := s.now()
	c := sess.Clone()
	c.Touch(now)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	s.mu.Lock()
	s.sessions[c.UserID] = &c
	s.mu.Unlock()
}

// UpdateSession applies fn to the user's session under the store lock.
// Changes are kept, and activity refreshed, only when fn returns nil.
// The bool result is false when no session exists, in which case fn is not called.
func (s *Store) UpdateSession(userID int64, fn func(*meetup.Session) error) (meetup.Session, bool, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[userID]
	if !ok {
		return meetup.Session{}, false, nil
	}
	work := cur.Clone()
	if err := fn(&work); err != nil {
		return cur.Clone(), true, err
	}
	work.Touch(now)
	s.sessions[userID] = &work
	return work.Clone(), true, nil
}

// RemoveSession deletes the user's session and reports whether it existed.
func (s *Store) RemoveSession(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; !ok {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// Sessions returns copies of all sessions ordered by user id.
func (s *Store) Sessions() []meetup.Session {
	s.mu.RLock()
	out := make([]meetup.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	s.mu.RUnlock()
	sortSessions(out)
	return out
}

func sortSessions(sessions []meetup.Session) {
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].UserID < sessions[j].UserID })
}

// EvictInactiveSessions removes sessions idle for longer than maxAge and
// returns how many were removed. Pings are not affected.
func (s *Store) EvictInactiveSessions(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// AppendPing records p as the newest ping and trims the oldest entries past
// the history limit. The appended ping itself is never dropped.
func (s *Store) AppendPing(p meetup.Ping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings = append(s.pings, p.Clone())
	if over := len(s.pings) - s.maxPings; over > 0 {
		s.pings = slices.Delete(s.pings, 0, over)
	}
}

// RecentPings returns up to limit pings, newest first. limit <= 0 returns all.
func (s *Store) RecentPings(limit int) []meetup.Ping {
	return s.collect(limit, func(meetup.Ping) bool { return true })
}

// PingsByOrganizer returns up to limit pings organized by userID, newest first.
func (s *Store) PingsByOrganizer(userID int64, limit int) []meetup.Ping {
	return s.collect(limit, meetup.PingFilter{OrganizerID: userID}.Match)
}

// PingsMatching returns up to limit pings matching every non-empty filter field, newest first.
func (s *Store) PingsMatching(f meetup.PingFilter, limit int) []meetup.Ping {
	return s.collect(limit, f.Match)
}

// collect walks pings newest first. Insertion order breaks timestamp ties.
func (s *Store) collect(limit int, keep func(meetup.Ping) bool) []meetup.Ping {
	s.mu.RLock()
	ordered := make([]meetup.Ping, 0, len(s.pings))
	for i := len(s.pings) - 1; i >= 0; i-- {
		if keep(s.pings[i]) {
			ordered = append(ordered, s.pings[i].Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}

// EvictPingsOlderThan removes pings created more than maxAge ago and returns how many were removed.
func (s *Store) EvictPingsOlderThan(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.pings)
	s.pings = slices.DeleteFunc(s.pings, func(p meetup.Ping) bool {
		return p.CreatedAt.Before(cutoff)
	})
	return before - len(s.pings)
}

// ClearPings drops the whole ping history and returns how many pings it held.
func (s *Store) ClearPings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pings)
	s.pings = nil
	return n
}

// Stats reports current occupancy.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Sessions:       len(s.sessions),
		Pings:          len(s.pings),
		MaxPingHistory: s.maxPings,
	}
}

// replace swaps the whole contents under the lock. Pings arrive oldest first.
func (s *Store) replace(sessions []meetup.Session, pings []meetup.Ping) {
	m := make(map[int64]*meetup.Session, len(sessions))
	for _, sess := range sessions {
		c := sess.Clone()
		m[c.UserID] = &c
	}
	kept := make([]meetup.Ping, 0, len(pings))
	for _, p := range pings {
		kept = append(kept, p.Clone())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if over := len(kept) - s.maxPings; over > 0 {
		kept = kept[over:]
	}
	s.sessions = m
	s.pings = kept
}

// snapshot copies the whole contents under the lock. Pings are oldest first.
func (s *Store) snapshot() ([]meetup.Session, []meetup.Ping, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]meetup.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess.Clone())
	}
	pings := make([]meetup.Ping, 0, len(s.pings))
	for _, p := range s.pings {
		pings = append(pings, p.Clone())
	}
	return sessions, pings, s.maxPings
}
