// Package session holds the authenticated context of a dashboard client.
// A session begins on a successful login and ends on logout or when the backend rejects its token.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/ficct/horarios/core/user"
)

var ErrNoSession = errors.New("no active session")

// Session is what a successful login returns.
type Session struct {
	Token     string    `json:"token"`
	User      user.User `json:"user"`
	StartedAt time.Time `json:"started_at"`
}

// Store persists the session between runs.
type Store interface {
	// Load returns ErrNoSession when nothing is stored.
	Load() (Session, error)
	Save(s Session) error
	Clear() error
}

// Manager owns the current session. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	store   Store
	current *Session
	onEnd   []func(reason error)
}

func NewManager(store Store) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{store: store}
}

// Restore loads a previously saved session, if any.
func (m *Manager) Restore() error {
	s, err := m.store.Load()
	if err != nil {
		if err == ErrNoSession {
			return nil
		}
		return err
	}
	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	return nil
}

// Begin starts a session and persists it.
func (m *Manager) Begin(s Session) error {
	if s.Token == "" {
		return errors.New("session token is empty")
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	if err := m.store.Save(s); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	return nil
}

// End tears the session down. `reason` is nil on a regular logout.
// Listeners run only if a session was active.
func (m *Manager) End(reason error) error {
	m.mu.Lock()
	active := m.current != nil
	m.current = nil
	listeners := append([]func(error){}, m.onEnd...)
	m.mu.Unlock()

	err := m.store.Clear()
	if active {
		for _, fn := range listeners {
			fn(reason)
		}
	}
	return err
}

// OnEnd registers a function called whenever an active session ends.
func (m *Manager) OnEnd(fn func(reason error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnd = append(m.onEnd, fn)
}

func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Token returns the bearer token of the current session, or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

func (m *Manager) Active() bool {
	return m.Token() != ""
}

// MemoryStore keeps the session in memory only.
type MemoryStore struct {
	mu sync.Mutex
	s  *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) Load() (Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.s == nil {
		return Session{}, ErrNoSession
	}
	return *ms.s, nil
}

func (ms *MemoryStore) Save(s Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.s = &s
	return nil
}

func (ms *MemoryStore) Clear() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.s = nil
	return nil
}
