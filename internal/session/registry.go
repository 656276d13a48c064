package session

import (
	"context"
	"sync"

	"github.com/comigor/leo-go/internal/logger"
)

// Registry maps sign-in tokens to their live session.
type Registry struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Manager
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, sessions: make(map[string]*Manager)}
}

// Open creates the session for a fresh sign-in and starts loading history in
// the background. An existing session under the same token is closed first.
func (r *Registry) Open(token, userID string) *Manager {
	m := New(userID, r.deps)

	r.mu.Lock()
	prev := r.sessions[token]
	r.sessions[token] = m
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	r.initialize(m)
	return m
}

func (r *Registry) initialize(m *Manager) {
	go func() {
		if err := m.Initialize(context.Background()); err != nil {
			logger.L.Debug("session initialize skipped", "session", m.ID(), "error", err)
		}
	}()
}

// GetOrOpen returns the session for token, opening one when there is none.
// Concurrent callers for the same token all get the same Manager.
func (r *Registry) GetOrOpen(token, userID string) *Manager {
	r.mu.Lock()
	m, ok := r.sessions[token]
	if !ok {
		m = New(userID, r.deps)
		r.sessions[token] = m
	}
	r.mu.Unlock()

	if !ok {
		r.initialize(m)
	}
	return m
}

// Get returns the session for token.
func (r *Registry) Get(token string) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.sessions[token]
	return m, ok
}

// Close tears down the session for token, if any.
func (r *Registry) Close(token string) {
	r.mu.Lock()
	m := r.sessions[token]
	delete(r.sessions, token)
	r.mu.Unlock()

	if m != nil {
		m.Close()
	}
}

// CloseAll tears down every session, used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Manager)
	r.mu.Unlock()

	for _, m := range sessions {
		m.Close()
	}
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
