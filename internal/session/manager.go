// Package session holds the in-memory registry of in-progress guided
// entries. Sessions are ephemeral: a restart loses them all, which is an
// accepted tradeoff because an entry takes seconds to redo.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/memobot/internal/domain"
)

// Manager is a concurrency-safe registry of live sessions keyed by id.
// All operations are plain map work under one mutex and never touch I/O.
type Manager struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewManager builds a registry whose Sweep removes sessions older than ttl.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*domain.Session),
	}
}

// Create registers a new session at the first step. The id embeds the owner
// and creation time plus a random fragment, so rapid repeated creation by
// the same user cannot collide.
func (m *Manager) Create(userID, chatID int64) *domain.Session {
	now := m.now()
	sess := &domain.Session{
		ID:           newSessionID(userID, now),
		UserID:       userID,
		ChatID:       chatID,
		Step:         domain.StepRating,
		CreatedAtUTC: now,
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess
}

// Get returns the live session with the given id, or nil.
func (m *Manager) Get(id string) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Remove deletes and returns the session with the given id, or nil.
func (m *Manager) Remove(id string) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.sessions[id]
	delete(m.sessions, id)
	return sess
}

// Sweep removes every session older than the TTL and reports how many were
// dropped. Expiry is purely periodic: nothing expires inline on Get or
// Create, so a session may outlive its nominal TTL by up to one sweep
// interval.
func (m *Manager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, sess := range m.sessions {
		if now.Sub(sess.CreatedAtUTC) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func newSessionID(userID int64, now time.Time) string {
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return fmt.Sprintf("%d_%d_%s", userID, now.UnixMilli(), frag)
}
