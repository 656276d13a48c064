package session

import "github.com/comigor/leo-go/internal/chat"

// Snapshot is a read-only copy of the session state for rendering.
type Snapshot struct {
	SessionID   string       `json:"sessionId"`
	UserID      string       `json:"userId"`
	State       string       `json:"state"`
	Entries     []chat.Entry `json:"messages"`
	Composer    string       `json:"composer"`
	SidebarOpen bool         `json:"sidebarOpen"`
	Busy        bool         `json:"busy"`
	Ready       bool         `json:"ready"`
	Closed      bool         `json:"closed"`
}

// ComposerDisabled reports whether the input must be locked.
func (s Snapshot) ComposerDisabled() bool {
	return s.Busy || !s.Ready || s.Closed
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	busy := m.inLocked(StateBusy)
	return Snapshot{
		SessionID:   m.id,
		UserID:      m.userID,
		State:       string(m.fsm.MustState().(fsmState)),
		Entries:     m.transcript.Entries(),
		Composer:    m.composer,
		SidebarOpen: m.sidebarOpen,
		Busy:        busy,
		Ready:       busy || m.inLocked(StateReady),
		Closed:      m.closedLocked(),
	}
}

// Subscribe returns a channel that receives a snapshot after every
// mutation, starting with the current one. Slow readers only ever see the
// latest snapshot. The channel is closed when the session closes or when
// the returned cancel func is called.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if m.closedLocked() {
		close(ch)
		return ch, func() {}
	}
	ch <- m.snapshotLocked()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			close(c)
			delete(m.subs, id)
		}
	}
}

func (m *Manager) notifyLocked() {
	if len(m.subs) == 0 {
		return
	}
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Replace the stale buffered snapshot with the latest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
