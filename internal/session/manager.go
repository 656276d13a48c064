// Package session owns one signed-in user's conversation: it loads their
// history, runs each send through the assistant, and writes the transcript
// back after every reply.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"

	"github.com/comigor/leo-go/internal/chat"
	"github.com/comigor/leo-go/internal/clock"
	"github.com/comigor/leo-go/internal/history"
	"github.com/comigor/leo-go/internal/logger"
	"github.com/comigor/leo-go/internal/reply"
)

// Greeting is seeded when a user has no usable history.
const Greeting = "Hi! I'm Leo, you can think of me as your wise friend who is pretty good at human behavior and psychology. Want my opinion on an argument you had? Want to share something that's troubling you? Or need a therapy? Talk to me :) \n All our conversations are completely private, so don't hold back."

// Deps are the collaborators shared by every session.
type Deps struct {
	Store   history.Store
	Replies reply.Service
	Clock   clock.Clock
}

// Manager is the single source of truth for one session's conversation.
// All mutations happen under mu; mu is never held across a storage or
// assistant call.
type Manager struct {
	id     string
	userID string
	store  history.Store
	reply  reply.Service
	clock  clock.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	fsm         *stateless.StateMachine
	transcript  chat.Transcript
	composer    string
	sidebarOpen bool
	subs        map[int]chan Snapshot
	nextSub     int
}

// New creates a session for userID. It does not touch storage until Initialize.
func New(userID string, deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		id:     uuid.NewString(),
		userID: userID,
		store:  deps.Store,
		reply:  deps.Replies,
		clock:  deps.Clock,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[int]chan Snapshot),
	}
	m.fsm = newStateMachine(m)
	return m
}

// ID identifies this session instance. A new sign-in always gets a new ID.
func (m *Manager) ID() string { return m.id }

// UserID is the identity the session was opened for.
func (m *Manager) UserID() string { return m.userID }

// Initialize loads the user's history. Any load failure, or an empty
// history, seeds the greeting instead; the seed is not persisted.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.closedLocked():
		m.mu.Unlock()
		return ErrClosed
	case !m.inLocked(StateUninitialized):
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.fireLocked(triggerInitialize)
	m.notifyLocked()
	m.mu.Unlock()

	callCtx, stop := m.callContext(ctx)
	defer stop()

	turns, err := m.store.Load(callCtx, m.userID)
	switch {
	case errors.Is(err, history.ErrNotFound):
		logger.L.Info("no stored history; seeding greeting", "user", m.userID, "session", m.id)
		turns = nil
	case err != nil:
		logger.L.Warn("history load failed; seeding greeting", "user", m.userID, "session", m.id, "error", err)
		turns = nil
	case len(turns) == 0:
		logger.L.Info("stored history is empty; seeding greeting", "user", m.userID, "session", m.id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closedLocked() {
		return ErrClosed
	}
	m.fireLocked(triggerLoaded, turns)
	m.notifyLocked()
	return nil
}

// SetComposer replaces the draft message. The draft is locked while a
// message is in flight.
func (m *Manager) SetComposer(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closedLocked():
		return ErrClosed
	case m.inLocked(StateBusy):
		return ErrBusy
	}
	m.composer = text
	m.notifyLocked()
	return nil
}

// ToggleSidebar flips the sidebar visibility.
func (m *Manager) ToggleSidebar() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closedLocked() {
		return
	}
	m.sidebarOpen = !m.sidebarOpen
	m.notifyLocked()
}

// Send submits the composer text and blocks until the reply is resolved and
// persistence has been attempted. Only precondition failures are returned.
// Blank messages (after trimming) are rejected; the text itself is sent
// untrimmed.
func (m *Manager) Send(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.closedLocked():
		m.mu.Unlock()
		return ErrClosed
	case m.inLocked(StateBusy):
		m.mu.Unlock()
		return ErrBusy
	case !m.inLocked(StateReady):
		m.mu.Unlock()
		return ErrNotReady
	case strings.TrimSpace(m.composer) == "":
		m.mu.Unlock()
		return ErrEmptyMessage
	}

	m.fireLocked(triggerSend, m.composer)
	prompts := reply.Normalize(m.transcript.Turns())
	m.notifyLocked()
	m.mu.Unlock()

	callCtx, stop := m.callContext(ctx)
	defer stop()

	text, err := m.reply.Ask(callCtx, prompts)

	m.mu.Lock()
	if m.closedLocked() {
		m.mu.Unlock()
		logger.L.Info("discarding reply for closed session", "user", m.userID, "session", m.id)
		return nil
	}
	if err != nil {
		logger.L.Error("Error fetching reply", "user", m.userID, "session", m.id, "error", err)
		m.fireLocked(triggerReplyFailed)
		m.notifyLocked()
		m.mu.Unlock()
		return nil
	}
	m.fireLocked(triggerReplyReceived, text)
	turns := m.transcript.Turns()
	m.notifyLocked()
	m.mu.Unlock()

	if err := m.store.Save(callCtx, m.userID, turns); err != nil {
		logger.L.Error("failed to store transcript", "user", m.userID, "session", m.id, "turns", len(turns), "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closedLocked() {
		return nil
	}
	m.fireLocked(triggerPersisted)
	m.notifyLocked()
	return nil
}

// PersistNow stores the current durable turns immediately. The typing
// indicator is not a turn, so it is never part of what gets written.
func (m *Manager) PersistNow(ctx context.Context) error {
	m.mu.Lock()
	turns := m.transcript.Turns()
	m.mu.Unlock()

	callCtx, stop := m.callContext(ctx)
	defer stop()
	return m.store.Save(callCtx, m.userID, turns)
}

// Close ends the session. A pending reply is abandoned: it will not be
// appended and the transcript will not be stored. Close is idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closedLocked() {
		return
	}
	m.fireLocked(triggerClose)
	m.notifyLocked()
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	logger.L.Info("session closed", "user", m.userID, "session", m.id)
}

// Done is closed once the session has been closed.
func (m *Manager) Done() <-chan struct{} {
	return m.ctx.Done()
}

// callContext keeps the caller's values (trace spans) but only the session
// lifetime can cancel it: a dropped HTTP request must not abandon a reply.
func (m *Manager) callContext(ctx context.Context) (context.Context, func()) {
	callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(m.ctx, cancel)
	return callCtx, func() {
		stop()
		cancel()
	}
}

func (m *Manager) fireLocked(trigger fsmTrigger, args ...any) {
	if err := m.fsm.FireCtx(m.ctx, trigger, args...); err != nil {
		// Transitions are all checked beforehand; reaching this is a wiring bug.
		logger.L.Error("FSM fire error", "trigger", trigger, "state", m.fsm.MustState(), "session", m.id, "error", err)
	}
}

func (m *Manager) inLocked(state fsmState) bool {
	ok, err := m.fsm.IsInState(state)
	return err == nil && ok
}

func (m *Manager) closedLocked() bool {
	return m.inLocked(StateClosed)
}
