package session

import (
	"context"

	"github.com/qmuntal/stateless"

	"github.com/comigor/leo-go/internal/chat"
	"github.com/comigor/leo-go/internal/logger"
)

// FSM states
type fsmState string

const (
	StateUninitialized fsmState = "Uninitialized"
	StateLoading       fsmState = "Loading"
	StateReady         fsmState = "Ready"
	StateBusy          fsmState = "Busy" // superstate of AwaitingReply and Persisting
	StateAwaitingReply fsmState = "AwaitingReply"
	StatePersisting    fsmState = "Persisting"
	StateClosed        fsmState = "Closed" // terminal
)

// FSM triggers
type fsmTrigger string

const (
	triggerInitialize    fsmTrigger = "Initialize"
	triggerLoaded        fsmTrigger = "Loaded"        // arg: []chat.Turn
	triggerSend          fsmTrigger = "Send"          // arg: message text
	triggerReplyReceived fsmTrigger = "ReplyReceived" // arg: reply text
	triggerReplyFailed   fsmTrigger = "ReplyFailed"
	triggerPersisted     fsmTrigger = "Persisted"
	triggerClose         fsmTrigger = "Close"
)

// newStateMachine wires the transitions for m. Entry and exit actions are
// the only place the transcript and composer are mutated during send, and
// they all run with m.mu held because Manager only fires while locked.
func newStateMachine(m *Manager) *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateUninitialized)

	fsm.Configure(StateUninitialized).
		Permit(triggerInitialize, StateLoading).
		Permit(triggerClose, StateClosed)

	fsm.Configure(StateLoading).
		Permit(triggerLoaded, StateReady).
		Permit(triggerClose, StateClosed)

	// State: Ready
	// Entered once history is known, and again at the end of every send.
	fsm.Configure(StateReady).
		OnEntryFrom(triggerLoaded, func(_ context.Context, args ...any) error {
			turns, _ := args[0].([]chat.Turn)
			if len(turns) == 0 {
				m.transcript.Replace([]chat.Turn{{Sender: chat.SenderAssistant, Text: Greeting, Time: m.clock.Now()}})
				return nil
			}
			m.transcript.Replace(turns)
			return nil
		}).
		OnEntryFrom(triggerReplyFailed, m.finalize).
		OnEntryFrom(triggerPersisted, m.finalize).
		Permit(triggerSend, StateAwaitingReply).
		Permit(triggerClose, StateClosed)

	fsm.Configure(StateBusy).
		Permit(triggerClose, StateClosed)

	// State: AwaitingReply
	// Entry: SUBMIT and INDICATE. Exit: the typing indicator goes away no
	// matter how the reply resolved.
	fsm.Configure(StateAwaitingReply).
		SubstateOf(StateBusy).
		OnEntryFrom(triggerSend, func(_ context.Context, args ...any) error {
			text, _ := args[0].(string)
			m.transcript.Append(chat.Turn{Sender: chat.SenderUser, Text: text, Time: m.clock.Now()})
			m.transcript.StartTyping()
			return nil
		}).
		OnExit(func(context.Context, ...any) error {
			m.transcript.StopTyping()
			return nil
		}).
		Permit(triggerReplyReceived, StatePersisting).
		Permit(triggerReplyFailed, StateReady)

	// State: Persisting
	// Entry: the reply becomes a durable turn. Busy stays set until the
	// store attempt is over.
	fsm.Configure(StatePersisting).
		SubstateOf(StateBusy).
		OnEntryFrom(triggerReplyReceived, func(_ context.Context, args ...any) error {
			text, _ := args[0].(string)
			m.transcript.Append(chat.Turn{Sender: chat.SenderAssistant, Text: text, Time: m.clock.Now()})
			return nil
		}).
		Permit(triggerPersisted, StateReady)

	fsm.Configure(StateClosed).
		OnEntry(func(context.Context, ...any) error {
			logger.L.Debug("FSM: Entering StateClosed", "session", m.id)
			m.cancel()
			return nil
		}).
		Ignore(triggerClose)

	return fsm
}

// finalize is FINALIZE: the composer is cleared whether or not the reply arrived.
func (m *Manager) finalize(context.Context, ...any) error {
	m.composer = ""
	return nil
}
