package wizard

import (
	"sync"
	"time"

	"github.com/Amawers/idmsystem-sub000/internal"
	"github.com/google/uuid"
)

// Session is one in-progress wizard editing session. Each session owns an
// independent store; the mutex serializes handler access so two requests for
// the same session cannot interleave a merge. Two clients sharing a session
// ID still get last-write-wins, which is the documented single-writer
// assumption.
type Session struct {
	ID        uuid.UUID
	Program   ProgramDef
	CreatedAt time.Time

	mu         sync.Mutex
	store      *Store
	lastActive time.Time
}

// Do runs fn with exclusive access to the session's store.
func (s *Session) Do(fn func(*Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	fn(s.store)
}

// Manager owns all live wizard sessions. Sessions are memory-only and do
// not survive a process restart.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[uuid.UUID]*Session)}
}

// Create starts an empty session for the given program.
func (m *Manager) Create(program ProgramDef) *Session {
	now := time.Now()
	session := &Session{
		ID:         uuid.New(),
		Program:    program,
		CreatedAt:  now,
		store:      NewStore(),
		lastActive: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session

	return session
}

// Get resolves a session by ID.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, internal.ErrSessionNotFound
	}
	return session, nil
}

// Discard removes a session and drops its store.
func (m *Manager) Discard(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Prune discards sessions idle for longer than maxIdle and reports how many
// were dropped. Abandoned wizards are reclaimed this way; there is no
// persistence to restore them from.
func (m *Manager) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for id, session := range m.sessions {
		session.mu.Lock()
		idle := session.lastActive.Before(cutoff)
		session.mu.Unlock()

		if idle {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
